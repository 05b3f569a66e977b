package library

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Book represents metadata and current availability of a book in the library.
// Optional numeric fields are pointers so an absent value survives the round
// trip through the database as NULL.
type Book struct {
	BookID        int64    `db:"book_id" json:"book_id" validate:"gt=0"`
	Title         string   `db:"title" json:"title" validate:"required"`
	Author        string   `db:"author" json:"author" validate:"required"`
	Genre         string   `db:"genre" json:"genre,omitempty"`
	AverageRating *float64 `db:"average_rating" json:"average_rating,omitempty" validate:"omitempty,gte=0,lte=5"`
	ISBN          string   `db:"isbn" json:"isbn,omitempty"`
	LanguageCode  string   `db:"language_code" json:"language_code,omitempty"`
	RatingCount   *int64   `db:"rating_count" json:"rating_count,omitempty" validate:"omitempty,gte=0"`
	Available     bool     `db:"available" json:"available"`
}

// NewBook builds an available book with the required fields and validates it.
func NewBook(id int64, title, author string) (*Book, error) {
	b := &Book{BookID: id, Title: title, Author: author, Available: true}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// Validate checks the construction invariants.
func (b *Book) Validate() error {
	if err := validate.Struct(b); err != nil {
		return Validationf("invalid book %q", b.Title).WithCause(err)
	}
	return nil
}

// Reserve marks the book as checked out. Reserving a book that is
// already out fails and leaves it unchanged.
func (b *Book) Reserve() error {
	if !b.Available {
		return InvalidStatef("book %q is already reserved", b.Title)
	}
	b.Available = false
	return nil
}

// Return marks the book as back on the shelf. Returning a book that is
// already available fails and leaves it unchanged.
func (b *Book) Return() error {
	if b.Available {
		return InvalidStatef("book %q is not checked out", b.Title)
	}
	b.Available = true
	return nil
}

func (b *Book) String() string {
	status := "Available"
	if !b.Available {
		status = "Not Available"
	}
	genre := b.Genre
	if genre == "" {
		genre = "Unknown"
	}
	return fmt.Sprintf("'%s' by %s | Genre: %s | Status: %s", b.Title, b.Author, genre, status)
}

// User represents a registered library user. The email is the natural key
// and must be unique within a system.
type User struct {
	UserID    int64     `db:"user_id" json:"user_id"`
	FirstName string    `db:"first_name" json:"first_name" validate:"required"`
	LastName  string    `db:"last_name" json:"last_name" validate:"required"`
	Email     string    `db:"email" json:"email" validate:"required,email"`
	PhoneNum  string    `db:"phone_num" json:"phone_num,omitempty"`
	Address   string    `db:"address" json:"address,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// NewUser builds a user with the required fields and validates it.
func NewUser(firstName, lastName, email string) (*User, error) {
	u := &User{FirstName: firstName, LastName: lastName, Email: email}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

// Validate checks the construction invariants.
func (u *User) Validate() error {
	if err := validate.Struct(u); err != nil {
		return Validationf("invalid user %s %s", u.FirstName, u.LastName).WithCause(err)
	}
	return nil
}

func (u *User) String() string {
	return fmt.Sprintf("User: %s %s | Email: %s", u.FirstName, u.LastName, u.Email)
}
