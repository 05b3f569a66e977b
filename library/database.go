package library

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Database is the storage adapter: it translates Book and User entities to
// and from durable SQLite rows. It owns no state beyond the durable copy.
type Database struct {
	db *sqlx.DB
}

// Borrowing links a book to the user who has it checked out. ReturnTime is
// NULL while the borrowing is open; UserID is NULL for unattributed
// checkouts.
type Borrowing struct {
	BorrowingID  int64         `db:"borrowing_id"`
	BookID       int64         `db:"book_id"`
	UserID       sql.NullInt64 `db:"user_id"`
	CheckoutTime time.Time     `db:"checkout_time"`
	ReturnTime   sql.NullTime  `db:"return_time"`
}

// NewDatabase opens (or creates) the SQLite database at dbPath and applies
// the schema.
func NewDatabase(dbPath string) (*Database, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, storagef("create db dir", err)
		}
	}

	// Enable busy_timeout and foreign keys.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, storagef("open sqlite", err)
	}

	d := &Database{db: db}
	if err := d.InitSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

// Close closes the underlying handle.
func (d *Database) Close() error { return d.db.Close() }

// ---------------------------------------------------------------------------
// Schema
// ---------------------------------------------------------------------------

// InitSchema ensures the three tables and their indexes exist. Safe to call
// on an already-initialized store.
func (d *Database) InitSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS books (
            book_id INTEGER PRIMARY KEY,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            genre TEXT,
            average_rating REAL,
            isbn TEXT,
            language_code TEXT,
            rating_count INTEGER,
            available BOOLEAN NOT NULL DEFAULT 1
        );`,
		`CREATE TABLE IF NOT EXISTS users (
            user_id INTEGER PRIMARY KEY AUTOINCREMENT,
            first_name TEXT NOT NULL,
            last_name TEXT NOT NULL,
            email TEXT NOT NULL,
            phone_num TEXT,
            address TEXT,
            created_at DATETIME NOT NULL
        );`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_users_email ON users(LOWER(email));`,
		`CREATE TABLE IF NOT EXISTS borrowings (
            borrowing_id INTEGER PRIMARY KEY AUTOINCREMENT,
            book_id INTEGER NOT NULL REFERENCES books(book_id),
            user_id INTEGER REFERENCES users(user_id),
            checkout_time DATETIME NOT NULL,
            return_time DATETIME
        );`,
		// At most one open borrowing per book.
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_borrowings_open
            ON borrowings(book_id) WHERE return_time IS NULL;`,
	}

	for _, stmt := range stmts {
		if _, err := d.db.Exec(stmt); err != nil {
			return storagef("apply schema", err)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Books
// ---------------------------------------------------------------------------

const bookColumns = `book_id, title, author, COALESCE(genre,'') AS genre, average_rating,
    COALESCE(isbn,'') AS isbn, COALESCE(language_code,'') AS language_code, rating_count, available`

const upsertBookSQL = `INSERT OR REPLACE INTO books
    (book_id, title, author, genre, average_rating, isbn, language_code, rating_count, available)
    VALUES (:book_id, :title, :author, :genre, :average_rating, :isbn, :language_code, :rating_count, :available)`

func upsertBook(e sqlx.Ext, b *Book) error {
	if _, err := sqlx.NamedExec(e, upsertBookSQL, b); err != nil {
		return storagef(fmt.Sprintf("upsert book %d", b.BookID), err)
	}
	return nil
}

// UpsertBook writes the book's row, inserting or overwriting by book_id.
func (d *Database) UpsertBook(b *Book) error { return upsertBook(d.db, b) }

// DeleteBook removes the book's row.
func (d *Database) DeleteBook(bookID int64) error {
	res, err := d.db.Exec(`DELETE FROM books WHERE book_id=?`, bookID)
	if err != nil {
		return storagef(fmt.Sprintf("delete book %d", bookID), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storagef("rows affected", err)
	}
	if n == 0 {
		return NotFoundf("book %d not found", bookID)
	}
	return nil
}

// LoadAllBooks returns every book row in insertion (book_id) order. Used
// once at startup to hydrate the in-memory collections.
func (d *Database) LoadAllBooks() ([]*Book, error) {
	var books []*Book
	if err := d.db.Select(&books, `SELECT `+bookColumns+` FROM books ORDER BY book_id`); err != nil {
		return nil, storagef("load books", err)
	}
	return books, nil
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

// UpsertUser writes the user's row and returns the user id, assigning one
// when the user does not carry an id yet. A duplicate email surfaces the
// unique-index violation as a storage error.
func (d *Database) UpsertUser(u *User) (int64, error) {
	if u.UserID == 0 {
		res, err := d.db.NamedExec(`INSERT INTO users
            (first_name, last_name, email, phone_num, address, created_at)
            VALUES (:first_name, :last_name, :email, :phone_num, :address, :created_at)`, u)
		if err != nil {
			return 0, storagef(fmt.Sprintf("insert user %s", u.Email), err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return 0, storagef("last insert id", err)
		}
		return id, nil
	}

	if _, err := d.db.NamedExec(`INSERT OR REPLACE INTO users
        (user_id, first_name, last_name, email, phone_num, address, created_at)
        VALUES (:user_id, :first_name, :last_name, :email, :phone_num, :address, :created_at)`, u); err != nil {
		return 0, storagef(fmt.Sprintf("upsert user %d", u.UserID), err)
	}
	return u.UserID, nil
}

// LoadAllUsers returns every user row in insertion (user_id) order.
func (d *Database) LoadAllUsers() ([]*User, error) {
	var users []*User
	if err := d.db.Select(&users, `SELECT user_id, first_name, last_name, email,
        COALESCE(phone_num,'') AS phone_num, COALESCE(address,'') AS address, created_at
        FROM users ORDER BY user_id`); err != nil {
		return nil, storagef("load users", err)
	}
	return users, nil
}

// ---------------------------------------------------------------------------
// Borrowings
// ---------------------------------------------------------------------------

func openBorrowing(e sqlx.Ext, bookID, userID int64) error {
	var uid any
	if userID > 0 {
		uid = userID
	}
	if _, err := e.Exec(`INSERT INTO borrowings (book_id, user_id, checkout_time) VALUES (?, ?, ?)`,
		bookID, uid, time.Now().UTC()); err != nil {
		return storagef(fmt.Sprintf("open borrowing for book %d", bookID), err)
	}
	return nil
}

func closeBorrowing(e sqlx.Ext, bookID int64) (bool, error) {
	res, err := e.Exec(`UPDATE borrowings SET return_time=? WHERE book_id=? AND return_time IS NULL`,
		time.Now().UTC(), bookID)
	if err != nil {
		return false, storagef(fmt.Sprintf("close borrowing for book %d", bookID), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storagef("rows affected", err)
	}
	return n > 0, nil
}

// OpenBorrowing records a checkout for the book. userID 0 means the
// checkout is not attributed to a user.
func (d *Database) OpenBorrowing(bookID, userID int64) error {
	return openBorrowing(d.db, bookID, userID)
}

// CloseBorrowing stamps the open borrowing for the book as returned.
func (d *Database) CloseBorrowing(bookID int64) error {
	closed, err := closeBorrowing(d.db, bookID)
	if err != nil {
		return err
	}
	if !closed {
		return NotFoundf("no open borrowing for book %d", bookID)
	}
	return nil
}

// ListBorrowings returns the borrowing history for a book, oldest first.
func (d *Database) ListBorrowings(bookID int64) ([]*Borrowing, error) {
	var recs []*Borrowing
	if err := d.db.Select(&recs, `SELECT borrowing_id, book_id, user_id, checkout_time, return_time
        FROM borrowings WHERE book_id=? ORDER BY checkout_time, borrowing_id`, bookID); err != nil {
		return nil, storagef(fmt.Sprintf("list borrowings for book %d", bookID), err)
	}
	return recs, nil
}

// CheckoutBook writes the reserved book row and opens its borrowing in one
// transaction, so a failure leaves the durable state untouched.
func (d *Database) CheckoutBook(b *Book, userID int64) error {
	tx, err := d.db.Beginx()
	if err != nil {
		return storagef("begin checkout", err)
	}
	defer tx.Rollback()

	if err := upsertBook(tx, b); err != nil {
		return err
	}
	if err := openBorrowing(tx, b.BookID, userID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return storagef("commit checkout", err)
	}
	return nil
}

// ReturnCheckout writes the returned book row and closes its open borrowing
// in one transaction. A book imported as unavailable has no borrowing to
// close; that is not an error.
func (d *Database) ReturnCheckout(b *Book) error {
	tx, err := d.db.Beginx()
	if err != nil {
		return storagef("begin return", err)
	}
	defer tx.Rollback()

	if err := upsertBook(tx, b); err != nil {
		return err
	}
	if _, err := closeBorrowing(tx, b.BookID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return storagef("commit return", err)
	}
	return nil
}
