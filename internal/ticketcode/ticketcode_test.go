package ticketcode

import (
	"errors"
	"regexp"
	"strings"
	"testing"
)

func TestNextRandomFormat(t *testing.T) {
	for _, length := range []int{MinLength, 10, MaxLength} {
		g, err := NewGenerator(length, SchemeRandom)
		if err != nil {
			t.Fatalf("new generator(%d): %v", length, err)
		}

		code, err := g.Next(0)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if len(code) != length {
			t.Fatalf("expected length %d, got %q", length, code)
		}
		for _, r := range code {
			if !strings.ContainsRune(Alphabet, r) {
				t.Fatalf("code %q contains %q outside the alphabet", code, r)
			}
		}
	}
}

func TestAlphabetExcludesAmbiguousCharacters(t *testing.T) {
	for _, r := range "0O1IL" {
		if strings.ContainsRune(Alphabet, r) {
			t.Fatalf("alphabet must not contain %q", r)
		}
	}
}

func TestNextSequentialSuffix(t *testing.T) {
	g, err := NewGenerator(DefaultLength, SchemeSequential)
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}

	pattern := regexp.MustCompile(`^[A-Z2-9]{8}-(\d{3})$`)
	cases := map[int]string{1: "001", 42: "042", 999: "999"}
	for seq, want := range cases {
		code, err := g.Next(seq)
		if err != nil {
			t.Fatalf("next(%d): %v", seq, err)
		}
		m := pattern.FindStringSubmatch(code)
		if m == nil || m[1] != want {
			t.Fatalf("next(%d) = %q, want suffix %s", seq, code, want)
		}
	}

	if _, err := g.Next(MaxSequence + 1); !errors.Is(err, ErrSequenceExhausted) {
		t.Fatalf("expected ErrSequenceExhausted, got %v", err)
	}
}

func TestNewGeneratorRejectsLength(t *testing.T) {
	for _, length := range []int{0, 7, 13} {
		if _, err := NewGenerator(length, SchemeRandom); !errors.Is(err, ErrInvalidLength) {
			t.Fatalf("length %d: expected ErrInvalidLength, got %v", length, err)
		}
	}
}

func TestParseScheme(t *testing.T) {
	if s, err := ParseScheme(""); err != nil || s != SchemeRandom {
		t.Fatalf("empty scheme: got %q, %v", s, err)
	}
	if s, err := ParseScheme(" Sequential "); err != nil || s != SchemeSequential {
		t.Fatalf("sequential scheme: got %q, %v", s, err)
	}
	if _, err := ParseScheme("uuid"); err == nil {
		t.Fatalf("expected error for unknown scheme")
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("  abcd2345-007\n"); got != "ABCD2345-007" {
		t.Fatalf("unexpected normalized code %q", got)
	}
}

// 31^8 codes: the birthday bound for 10k draws is ~5.9e-5, so a collision
// here means the generator is broken rather than unlucky.
func TestNextNoCollisionsIn10000(t *testing.T) {
	g, err := NewGenerator(DefaultLength, SchemeRandom)
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}

	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		code, err := g.Next(0)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if _, dup := seen[code]; dup {
			t.Fatalf("collision after %d codes: %s", i, code)
		}
		seen[code] = struct{}{}
	}
}
