package library

import (
	"strings"
	"time"
)

// Config selects the persistence mode. An empty DBPath means in-memory
// only: entities live and die with the process. A non-empty DBPath opens
// the SQLite store and every mutation writes through before returning.
type Config struct {
	DBPath string
}

// LibrarySystem is the single authoritative in-memory view of the
// inventory, optionally mirrored to durable storage. It is not safe for
// concurrent use, and two processes over the same store are not supported.
type LibrarySystem struct {
	db *Database // nil in in-memory mode

	books  map[int64]*Book
	order  []int64 // book ids in insertion order
	users  []*User
	emails map[string]*User // lowercased email -> user
}

// New creates a library system for the given configuration. In persistent
// mode the existing rows are loaded into the in-memory collections, so
// subsequent reads never hit storage.
func New(cfg Config) (*LibrarySystem, error) {
	ls := &LibrarySystem{
		books:  make(map[int64]*Book),
		emails: make(map[string]*User),
	}
	if cfg.DBPath == "" {
		return ls, nil
	}

	db, err := NewDatabase(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := ls.hydrate(db); err != nil {
		db.Close()
		return nil, err
	}
	ls.db = db
	return ls, nil
}

// NewInMemory creates a system with no durable storage.
func NewInMemory() *LibrarySystem {
	ls, _ := New(Config{})
	return ls
}

// Open creates a persistent system over the SQLite store at dbPath.
func Open(dbPath string) (*LibrarySystem, error) {
	return New(Config{DBPath: dbPath})
}

// Close releases the store handle. A no-op in in-memory mode.
func (ls *LibrarySystem) Close() error {
	if ls.db != nil {
		return ls.db.Close()
	}
	return nil
}

func (ls *LibrarySystem) hydrate(db *Database) error {
	books, err := db.LoadAllBooks()
	if err != nil {
		return err
	}
	for _, b := range books {
		ls.books[b.BookID] = b
		ls.order = append(ls.order, b.BookID)
	}

	users, err := db.LoadAllUsers()
	if err != nil {
		return err
	}
	for _, u := range users {
		ls.users = append(ls.users, u)
		ls.emails[emailKey(u.Email)] = u
	}
	return nil
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ------------------ Books ------------------

// AddBook inserts a new book. The storage write is synchronous: the call
// does not return until the durable write completed or failed, and a
// failed write leaves the in-memory collection untouched.
func (ls *LibrarySystem) AddBook(b *Book) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if _, ok := ls.books[b.BookID]; ok {
		return DuplicateKeyf("book %d already exists", b.BookID)
	}
	if ls.db != nil {
		if err := ls.db.UpsertBook(b); err != nil {
			return err
		}
	}
	ls.books[b.BookID] = b
	ls.order = append(ls.order, b.BookID)
	return nil
}

// UpdateBook overwrites the stored record for b.BookID.
func (ls *LibrarySystem) UpdateBook(b *Book) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if _, ok := ls.books[b.BookID]; !ok {
		return NotFoundf("book %d not found", b.BookID)
	}
	if ls.db != nil {
		if err := ls.db.UpsertBook(b); err != nil {
			return err
		}
	}
	ls.books[b.BookID] = b
	return nil
}

// RemoveBook deletes a book from the system.
func (ls *LibrarySystem) RemoveBook(bookID int64) error {
	if _, ok := ls.books[bookID]; !ok {
		return NotFoundf("book %d not found", bookID)
	}
	if ls.db != nil {
		if err := ls.db.DeleteBook(bookID); err != nil {
			return err
		}
	}
	delete(ls.books, bookID)
	for i, id := range ls.order {
		if id == bookID {
			ls.order = append(ls.order[:i], ls.order[i+1:]...)
			break
		}
	}
	return nil
}

// FindBookByTitle returns the first book whose title matches
// case-insensitively, in insertion order. Absence is not an error.
func (ls *LibrarySystem) FindBookByTitle(title string) (*Book, bool) {
	want := strings.TrimSpace(title)
	for _, id := range ls.order {
		if strings.EqualFold(strings.TrimSpace(ls.books[id].Title), want) {
			return ls.books[id], true
		}
	}
	return nil, false
}

// FindBookByID returns the book with the given id.
func (ls *LibrarySystem) FindBookByID(bookID int64) (*Book, bool) {
	b, ok := ls.books[bookID]
	return b, ok
}

// ListBooks returns all books in insertion order, optionally only the
// available ones.
func (ls *LibrarySystem) ListBooks(availableOnly bool) []*Book {
	books := make([]*Book, 0, len(ls.order))
	for _, id := range ls.order {
		b := ls.books[id]
		if availableOnly && !b.Available {
			continue
		}
		books = append(books, b)
	}
	return books
}

// ReserveBook checks out the book with the given title. userID may be 0
// for an unattributed checkout; in persistent mode a borrowing record is
// opened either way. If the storage write fails the in-memory transition
// is rolled back before the error propagates.
func (ls *LibrarySystem) ReserveBook(title string, userID int64) (*Book, error) {
	b, ok := ls.FindBookByTitle(title)
	if !ok {
		return nil, NotFoundf("book not found: %s", title)
	}
	if err := b.Reserve(); err != nil {
		return nil, err
	}
	if ls.db != nil {
		if err := ls.db.CheckoutBook(b, userID); err != nil {
			b.Available = true
			return nil, err
		}
	}
	return b, nil
}

// ReturnBook returns the book with the given title, closing its open
// borrowing in persistent mode. Rollback semantics match ReserveBook.
func (ls *LibrarySystem) ReturnBook(title string) (*Book, error) {
	b, ok := ls.FindBookByTitle(title)
	if !ok {
		return nil, NotFoundf("book not found: %s", title)
	}
	if err := b.Return(); err != nil {
		return nil, err
	}
	if ls.db != nil {
		if err := ls.db.ReturnCheckout(b); err != nil {
			b.Available = false
			return nil, err
		}
	}
	return b, nil
}

// ------------------ Users ------------------

// AddUser registers a user and returns the assigned user id. The email
// must be unique (case-insensitive) within the system.
func (ls *LibrarySystem) AddUser(u *User) (int64, error) {
	if err := u.Validate(); err != nil {
		return 0, err
	}
	key := emailKey(u.Email)
	if _, ok := ls.emails[key]; ok {
		return 0, DuplicateKeyf("user with email %s already exists", u.Email)
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if ls.db != nil {
		id, err := ls.db.UpsertUser(u)
		if err != nil {
			return 0, err
		}
		u.UserID = id
	} else if u.UserID == 0 {
		u.UserID = int64(len(ls.users) + 1)
	}
	ls.users = append(ls.users, u)
	ls.emails[key] = u
	return u.UserID, nil
}

// ListUsers returns all users in insertion order.
func (ls *LibrarySystem) ListUsers() []*User {
	users := make([]*User, len(ls.users))
	copy(users, ls.users)
	return users
}
