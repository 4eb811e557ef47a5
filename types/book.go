package types

import "time"

// ISBNLength is the required length of an ISBN identifier.
const ISBNLength = 13

// Book represents a title in the library catalog.
type Book struct {
	// ID is the unique identifier of the book.
	ID int `json:"id" db:"id"`

	// Title is the book's title.
	Title string `json:"title" db:"title"`

	// Author is the book's author.
	Author string `json:"author" db:"author"`

	// Publisher is the publishing house.
	Publisher string `json:"publisher" db:"publisher"`

	// PublicationDate is the calendar date the book was published.
	PublicationDate Date `json:"publication_date" db:"publication_date"`

	// ISBN is the globally unique 13-character identifier of the book.
	ISBN string `json:"isbn" db:"isbn"`

	// AvailableCopies is the number of physical copies held by the
	// library. It is catalog metadata; availability over time is
	// governed by approved borrow intervals.
	AvailableCopies int `json:"available_copies" db:"available_copies"`

	// CreatedAt is the timestamp when the book was added to the catalog.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the book.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
