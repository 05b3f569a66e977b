package library

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustBook(t *testing.T, id int64, title, author string) *Book {
	t.Helper()
	b, err := NewBook(id, title, author)
	require.NoError(t, err)
	return b
}

func TestAddAndFindBook(t *testing.T) {
	sys := NewInMemory()
	b := mustBook(t, 1, "Dune", "Frank Herbert")
	b.Genre = "Sci-Fi"
	require.NoError(t, sys.AddBook(b))

	got, ok := sys.FindBookByTitle("dune")
	require.True(t, ok, "title match is case-insensitive")
	assert.Equal(t, b, got)

	got, ok = sys.FindBookByTitle("  DUNE  ")
	require.True(t, ok, "title match trims whitespace")
	assert.Equal(t, b, got)

	_, ok = sys.FindBookByTitle("Dune Messiah")
	assert.False(t, ok, "absence is a valid outcome, not an error")

	byID, ok := sys.FindBookByID(1)
	require.True(t, ok)
	assert.Equal(t, b, byID)
}

func TestAddBookDuplicateID(t *testing.T) {
	sys := NewInMemory()
	original := mustBook(t, 1, "Dune", "Frank Herbert")
	require.NoError(t, sys.AddBook(original))

	err := sys.AddBook(mustBook(t, 1, "Impostor", "Nobody"))
	require.ErrorIs(t, err, ErrDuplicateKey)

	got, _ := sys.FindBookByID(1)
	assert.Equal(t, "Dune", got.Title, "original record must be unmodified")
}

func TestUpdateBook(t *testing.T) {
	sys := NewInMemory()
	require.NoError(t, sys.AddBook(mustBook(t, 1, "Dune", "Frank Herbert")))

	updated := mustBook(t, 1, "Dune", "Frank Herbert")
	updated.Genre = "Sci-Fi"
	require.NoError(t, sys.UpdateBook(updated))
	got, _ := sys.FindBookByID(1)
	assert.Equal(t, "Sci-Fi", got.Genre)

	err := sys.UpdateBook(mustBook(t, 99, "Ghost", "Nobody"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListBooksOrderAndFilter(t *testing.T) {
	sys := NewInMemory()
	require.NoError(t, sys.AddBook(mustBook(t, 3, "C", "X")))
	require.NoError(t, sys.AddBook(mustBook(t, 1, "A", "X")))
	require.NoError(t, sys.AddBook(mustBook(t, 2, "B", "X")))

	titles := func(books []*Book) []string {
		var out []string
		for _, b := range books {
			out = append(out, b.Title)
		}
		return out
	}
	assert.Equal(t, []string{"C", "A", "B"}, titles(sys.ListBooks(false)), "insertion order")

	_, err := sys.ReserveBook("A", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "B"}, titles(sys.ListBooks(true)))
}

func TestReserveAndReturnByTitle(t *testing.T) {
	sys := NewInMemory()
	b := mustBook(t, 1, "Dune", "Frank Herbert")
	b.Genre = "Sci-Fi"
	require.NoError(t, sys.AddBook(b))

	_, err := sys.ReserveBook("Dune", 0)
	require.NoError(t, err)
	got, _ := sys.FindBookByTitle("Dune")
	assert.False(t, got.Available)

	// Reserving again fails and leaves state unchanged.
	_, err = sys.ReserveBook("Dune", 0)
	require.ErrorIs(t, err, ErrInvalidState)
	assert.False(t, got.Available)

	_, err = sys.ReturnBook("Dune")
	require.NoError(t, err)
	assert.True(t, got.Available)

	_, err = sys.ReserveBook("No Such Book", 0)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = sys.ReturnBook("No Such Book")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveBook(t *testing.T) {
	sys := NewInMemory()
	require.NoError(t, sys.AddBook(mustBook(t, 1, "Dune", "Frank Herbert")))
	require.NoError(t, sys.AddBook(mustBook(t, 2, "1984", "George Orwell")))

	require.NoError(t, sys.RemoveBook(1))
	assert.Len(t, sys.ListBooks(false), 1)
	require.ErrorIs(t, sys.RemoveBook(1), ErrNotFound)
}

func TestAddUserDuplicateEmail(t *testing.T) {
	sys := NewInMemory()
	u, err := NewUser("Ada", "Lovelace", "ada@example.com")
	require.NoError(t, err)
	id, err := sys.AddUser(u)
	require.NoError(t, err)
	assert.NotZero(t, id)

	dup, err := NewUser("Other", "Person", "ADA@Example.com")
	require.NoError(t, err)
	_, err = sys.AddUser(dup)
	require.ErrorIs(t, err, ErrDuplicateKey, "email uniqueness is case-insensitive")

	assert.Len(t, sys.ListUsers(), 1)
}

func TestPersistentRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lib.db")

	sys, err := Open(path)
	require.NoError(t, err)

	rating := 4.5
	b := mustBook(t, 1, "Dune", "Frank Herbert")
	b.Genre = "Sci-Fi"
	b.AverageRating = &rating
	require.NoError(t, sys.AddBook(b))

	u, err := NewUser("Ada", "Lovelace", "ada@example.com")
	require.NoError(t, err)
	uid, err := sys.AddUser(u)
	require.NoError(t, err)

	_, err = sys.ReserveBook("Dune", uid)
	require.NoError(t, err)
	require.NoError(t, sys.Close())

	// Process restart: a new system over the same store.
	sys2, err := Open(path)
	require.NoError(t, err)
	defer sys2.Close()

	books := sys2.ListBooks(false)
	require.Len(t, books, 1)
	assert.Equal(t, b, books[0])
	assert.False(t, books[0].Available)

	users := sys2.ListUsers()
	require.Len(t, users, 1)
	assert.Equal(t, "ada@example.com", users[0].Email)
	assert.Equal(t, uid, users[0].UserID)

	// The reserve opened a borrowing attributed to the user.
	db, err := NewDatabase(path)
	require.NoError(t, err)
	defer db.Close()
	recs, err := db.ListBorrowings(1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.True(t, recs[0].UserID.Valid)
	assert.Equal(t, uid, recs[0].UserID.Int64)
	assert.False(t, recs[0].ReturnTime.Valid)

	// Returning through the new system closes it.
	_, err = sys2.ReturnBook("Dune")
	require.NoError(t, err)
	recs, err = db.ListBorrowings(1)
	require.NoError(t, err)
	assert.True(t, recs[0].ReturnTime.Valid)
}

// A failed write-through must roll the in-memory mutation back before the
// error propagates; no partial mutation is observable.
func TestWriteThroughRollback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lib.db")
	sys, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, sys.AddBook(mustBook(t, 1, "Dune", "Frank Herbert")))

	// Pull the store out from under the system to force storage failures.
	require.NoError(t, sys.db.Close())

	err = sys.AddBook(mustBook(t, 2, "1984", "George Orwell"))
	require.ErrorIs(t, err, ErrStorage)
	_, ok := sys.FindBookByID(2)
	assert.False(t, ok, "failed add must not be visible in memory")

	_, err = sys.ReserveBook("Dune", 0)
	require.ErrorIs(t, err, ErrStorage)
	b, _ := sys.FindBookByID(1)
	assert.True(t, b.Available, "failed reserve must restore availability")

	b.Available = false
	_, err = sys.ReturnBook("Dune")
	require.ErrorIs(t, err, ErrStorage)
	assert.False(t, b.Available, "failed return must restore availability")
}
