package catalog

import "testing"

func TestDefaultFixture(t *testing.T) {
	t.Parallel()
	c := New(nil)
	if c.Len() != 10 {
		t.Fatalf("default catalog has %d servers, want 10", c.Len())
	}
	srv, ok := c.FindByID("3")
	if !ok {
		t.Fatal("server 3 missing from default fixture")
	}
	if srv.Name != "Development Server 1" {
		t.Fatalf("server 3 name = %q", srv.Name)
	}
	if _, ok := c.FindByID("999"); ok {
		t.Fatal("unexpected server 999")
	}
}

func TestListReturnsCopy(t *testing.T) {
	t.Parallel()
	c := New([]Server{{ID: "a", Name: "Alpha", Address: "10.0.0.1", Status: StatusOnline}})

	got := c.List()
	got[0].Name = "mutated"

	again := c.List()
	if again[0].Name != "Alpha" {
		t.Fatalf("catalog mutated through List copy: %q", again[0].Name)
	}
}

func TestFindByIDTrimsInput(t *testing.T) {
	t.Parallel()
	c := New(nil)
	if _, ok := c.FindByID(" 1 "); !ok {
		t.Fatal("expected id lookup to trim whitespace")
	}
}
