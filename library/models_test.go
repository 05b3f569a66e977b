package library

import (
	"errors"
	"testing"
)

func TestBookReserveReturnRoundTrip(t *testing.T) {
	b, err := NewBook(1, "Dune", "Frank Herbert")
	if err != nil {
		t.Fatalf("new book: %v", err)
	}
	if !b.Available {
		t.Fatalf("new book should be available")
	}

	if err := b.Reserve(); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if b.Available {
		t.Fatalf("reserved book should be unavailable")
	}

	if err := b.Return(); err != nil {
		t.Fatalf("return: %v", err)
	}
	if !b.Available {
		t.Fatalf("returned book should be available")
	}
}

func TestReserveUnavailableBook(t *testing.T) {
	b, _ := NewBook(1, "Dune", "Frank Herbert")
	if err := b.Reserve(); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	err := b.Reserve()
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("want ErrInvalidState, got %v", err)
	}
	if b.Available {
		t.Fatalf("failed reserve must leave state unchanged")
	}
}

func TestReturnAvailableBook(t *testing.T) {
	b, _ := NewBook(1, "Dune", "Frank Herbert")
	err := b.Return()
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("want ErrInvalidState, got %v", err)
	}
	if !b.Available {
		t.Fatalf("failed return must leave state unchanged")
	}
}

func TestBookValidation(t *testing.T) {
	cases := []struct {
		name          string
		id            int64
		title, author string
	}{
		{"empty title", 1, "", "Author"},
		{"empty author", 1, "Title", ""},
		{"zero id", 0, "Title", "Author"},
		{"negative id", -3, "Title", "Author"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewBook(tc.id, tc.title, tc.author); !errors.Is(err, ErrValidation) {
				t.Fatalf("want ErrValidation, got %v", err)
			}
		})
	}
}

func TestBookRatingRange(t *testing.T) {
	b, _ := NewBook(1, "Dune", "Frank Herbert")
	bad := 5.5
	b.AverageRating = &bad
	if err := b.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("want ErrValidation for rating %v, got %v", bad, err)
	}
	good := 4.2
	b.AverageRating = &good
	if err := b.Validate(); err != nil {
		t.Fatalf("rating %v should be valid: %v", good, err)
	}
}

func TestUserValidation(t *testing.T) {
	if _, err := NewUser("Ada", "Lovelace", "ada@example.com"); err != nil {
		t.Fatalf("valid user rejected: %v", err)
	}
	cases := []struct {
		name               string
		first, last, email string
	}{
		{"empty first name", "", "Lovelace", "ada@example.com"},
		{"empty last name", "Ada", "", "ada@example.com"},
		{"empty email", "Ada", "Lovelace", ""},
		{"malformed email", "Ada", "Lovelace", "not-an-email"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewUser(tc.first, tc.last, tc.email); !errors.Is(err, ErrValidation) {
				t.Fatalf("want ErrValidation, got %v", err)
			}
		})
	}
}
