package boardidx

import "testing"

func TestFindMatchesWholeWordsOnly(t *testing.T) {
	idx := New()
	idx.Add("n1", "Market research", "competitor pricing\npricing model")
	idx.Add("n2", "Notes", "price elasticity")

	refs := idx.Find("pricing")
	if len(refs) != 2 {
		t.Fatalf("want 2 refs, got %d", len(refs))
	}
	for _, r := range refs {
		if r.NodeID != "n1" {
			t.Fatalf("unexpected node %s", r.NodeID)
		}
	}
	if refs[0].Line != 1 || refs[1].Line != 2 {
		t.Fatalf("unexpected lines %d %d", refs[0].Line, refs[1].Line)
	}

	if got := idx.Find("price"); len(got) != 1 || got[0].NodeID != "n2" {
		t.Fatalf("substring must not match across words: %v", got)
	}
}

func TestFindIsCaseFolded(t *testing.T) {
	idx := New()
	idx.Add("n1", "Roadmap", "Launch in Q3")

	if got := idx.Find("LAUNCH"); len(got) != 1 {
		t.Fatalf("case-folded lookup failed: %v", got)
	}
}

func TestTitleMatchesReportLineZero(t *testing.T) {
	idx := New()
	idx.Add("n1", "Budget", "numbers go here")

	refs := idx.Find("budget")
	if len(refs) != 1 || refs[0].Line != 0 {
		t.Fatalf("want title ref at line 0, got %v", refs)
	}
}

func TestNumbersAndSymbolsAreDelimiters(t *testing.T) {
	idx := New()
	idx.Add("n1", "", "v2 beta-launch 42")

	if got := idx.Find("beta"); len(got) != 1 {
		t.Fatalf("hyphen must split words: %v", got)
	}
	if got := idx.Find("42"); len(got) != 0 {
		t.Fatalf("bare numbers must not index: %v", got)
	}
	if got := idx.Find("v2"); len(got) != 1 {
		t.Fatalf("ident-like token with digit must index: %v", got)
	}
}

func TestNilIndexIsSafe(t *testing.T) {
	var idx *Index
	idx.Add("n1", "a", "b")
	if got := idx.Find("a"); got != nil {
		t.Fatalf("nil index must return nothing, got %v", got)
	}
}
