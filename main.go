package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"library-inventory/library"
)

var dbPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "library",
		Short:         "Library inventory management",
		Long:          "Tracks a library's book inventory and user roster, with optional SQLite persistence.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&dbPath, "db", "", "path to SQLite database (omit for in-memory)")

	root.AddCommand(
		newInitDBCmd(),
		newLoadCSVCmd(),
		newListBooksCmd(),
		newFindCmd(),
		newReserveCmd(),
		newReturnCmd(),
		newRemoveBookCmd(),
		newAddUserCmd(),
		newListUsersCmd(),
	)
	return root
}

// openSystem builds a system for the --db flag: persistent when set, a
// fresh in-memory one otherwise.
func openSystem() (*library.LibrarySystem, error) {
	if dbPath == "" {
		return library.NewInMemory(), nil
	}
	return library.Open(dbPath)
}

func newInitDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-db <path>",
		Short: "Initialize a new SQLite database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := library.NewDatabase(args[0])
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Printf("Database initialized at: %s\n", args[0])
			return nil
		},
	}
}

func newLoadCSVCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load-csv <file>",
		Short: "Load books from a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sys, err := openSystem()
			if err != nil {
				return err
			}
			defer sys.Close()

			books, report, err := library.LoadBooksFromCSV(args[0])
			if err != nil {
				return err
			}
			added := 0
			for _, b := range books {
				if err := sys.AddBook(b); err != nil {
					fmt.Fprintf(os.Stderr, "skipping book %d (%s): %v\n", b.BookID, b.Title, err)
					continue
				}
				added++
			}
			fmt.Printf("Loaded %d books from %s", added, args[0])
			if n := len(report.Skipped); n > 0 {
				fmt.Printf(" (%d rows skipped)", n)
			}
			fmt.Println()
			return nil
		},
	}
}

func newListBooksCmd() *cobra.Command {
	var availableOnly bool
	cmd := &cobra.Command{
		Use:   "list-books",
		Short: "List books in the library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sys, err := openSystem()
			if err != nil {
				return err
			}
			defer sys.Close()

			books := sys.ListBooks(availableOnly)
			if len(books) == 0 {
				fmt.Println("No books found.")
				return nil
			}
			printBookTable(books)
			fmt.Printf("\nTotal: %d books\n", len(books))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&availableOnly, "available", "a", false, "show only available books")
	return cmd
}

func newFindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "find <title>",
		Short: "Find a book by title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sys, err := openSystem()
			if err != nil {
				return err
			}
			defer sys.Close()

			b, ok := sys.FindBookByTitle(args[0])
			if !ok {
				return library.NotFoundf("book not found: %s", args[0])
			}
			fmt.Println(b)
			return nil
		},
	}
}

func newReserveCmd() *cobra.Command {
	var userID int64
	cmd := &cobra.Command{
		Use:   "reserve <title>",
		Short: "Reserve a book by title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sys, err := openSystem()
			if err != nil {
				return err
			}
			defer sys.Close()

			b, err := sys.ReserveBook(args[0], userID)
			if err != nil {
				return err
			}
			fmt.Printf("Reserved: %s\n", b.Title)
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "user id to attribute the checkout to")
	return cmd
}

func newReturnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "return <title>",
		Short: "Return a book by title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sys, err := openSystem()
			if err != nil {
				return err
			}
			defer sys.Close()

			b, err := sys.ReturnBook(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Returned: %s\n", b.Title)
			return nil
		},
	}
}

func newRemoveBookCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-book <id>",
		Short: "Remove a book by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return library.Validationf("invalid book id: %s", args[0])
			}
			sys, err := openSystem()
			if err != nil {
				return err
			}
			defer sys.Close()

			if err := sys.RemoveBook(id); err != nil {
				return err
			}
			fmt.Printf("Removed book %d\n", id)
			return nil
		},
	}
}

func newAddUserCmd() *cobra.Command {
	var first, last, email, phone, address string
	cmd := &cobra.Command{
		Use:   "add-user",
		Short: "Add a new user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sys, err := openSystem()
			if err != nil {
				return err
			}
			defer sys.Close()

			u, err := library.NewUser(first, last, email)
			if err != nil {
				return err
			}
			u.PhoneNum = phone
			u.Address = address

			id, err := sys.AddUser(u)
			if err != nil {
				return err
			}
			fmt.Printf("Added user (ID: %d): %s\n", id, u)
			return nil
		},
	}
	cmd.Flags().StringVarP(&first, "first", "f", "", "first name")
	cmd.Flags().StringVarP(&last, "last", "l", "", "last name")
	cmd.Flags().StringVarP(&email, "email", "e", "", "email address")
	cmd.Flags().StringVarP(&phone, "phone", "p", "", "phone number")
	cmd.Flags().StringVar(&address, "address", "", "postal address")
	cmd.MarkFlagRequired("first")
	cmd.MarkFlagRequired("last")
	cmd.MarkFlagRequired("email")
	return cmd
}

func newListUsersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-users",
		Short: "List registered users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sys, err := openSystem()
			if err != nil {
				return err
			}
			defer sys.Close()

			users := sys.ListUsers()
			if len(users) == 0 {
				fmt.Println("No users found.")
				return nil
			}

			fmt.Printf("%-5s %-30s %-30s %-15s\n", "ID", "Name", "Email", "Phone")
			fmt.Println(strings.Repeat("-", 85))
			for _, u := range users {
				phone := u.PhoneNum
				if phone == "" {
					phone = "N/A"
				}
				name := u.FirstName + " " + u.LastName
				fmt.Printf("%-5d %-30s %-30s %-15s\n", u.UserID, truncateString(name, 30), truncateString(u.Email, 30), phone)
			}
			fmt.Printf("\nTotal: %d users\n", len(users))
			return nil
		},
	}
}

func printBookTable(books []*library.Book) {
	fmt.Printf("%-5s %-35s %-25s %-15s %-10s\n", "ID", "Title", "Author", "Genre", "Available")
	fmt.Println(strings.Repeat("-", 95))
	for _, b := range books {
		availStr := "Yes"
		if !b.Available {
			availStr = "No"
		}
		genre := b.Genre
		if genre == "" {
			genre = "N/A"
		}
		fmt.Printf("%-5d %-35s %-25s %-15s %-10s\n",
			b.BookID,
			truncateString(b.Title, 35),
			truncateString(b.Author, 25),
			truncateString(genre, 15),
			availStr)
	}
}

func truncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength-3] + "..."
}
