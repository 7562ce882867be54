package models

import "time"

// Reading-progress states. The books.status CHECK constraint allows exactly
// these three values; keep both in sync.
const (
	StatusRead       = "read"
	StatusReading    = "reading"
	StatusWantToRead = "want_to_read"
)

// Book represents a tracked book owned by a single user.
// Rating and review are optional; rating is 1..5 when present.
type Book struct {
	ID              string    `json:"id" db:"id"`
	UserID          string    `json:"user_id" db:"user_id"`
	Title           string    `json:"title" db:"title"`
	Genre           string    `json:"genre" db:"genre"`
	Author          string    `json:"author" db:"author"`
	PublicationYear int       `json:"publication_year" db:"publication_year"`
	Status          string    `json:"status" db:"status"`
	Rating          *int      `json:"rating,omitempty" db:"rating"`
	Review          *string   `json:"review,omitempty" db:"review"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// CreateBookRequest represents the POST /books body
type CreateBookRequest struct {
	Title           string  `json:"title" validate:"required"`
	Genre           string  `json:"genre" validate:"required"`
	Author          string  `json:"author" validate:"required"`
	PublicationYear int     `json:"publicationYear" validate:"required"`
	Status          string  `json:"status" validate:"required,oneof=read reading want_to_read"`
	Rating          *int    `json:"rating,omitempty" validate:"omitempty,min=1,max=5"`
	Review          *string `json:"review,omitempty"`
}

// UpdateBookRequest represents the PUT /books/{bookId} body.
// Pointer fields so an absent key is distinguishable from a zero value;
// nil means "leave unchanged".
type UpdateBookRequest struct {
	Title           *string `json:"title,omitempty"`
	Genre           *string `json:"genre,omitempty"`
	Author          *string `json:"author,omitempty"`
	PublicationYear *int    `json:"publicationYear,omitempty"`
	Status          *string `json:"status,omitempty" validate:"omitempty,oneof=read reading want_to_read"`
	Rating          *int    `json:"rating,omitempty" validate:"omitempty,min=1,max=5"`
	Review          *string `json:"review,omitempty"`
}

// GenreCount is one entry of the metrics genre distribution
type GenreCount struct {
	Genre string `json:"genre" db:"genre"`
	Count int    `json:"count" db:"count"`
}

// BookMetrics is the GET /books/metrics response, computed at request time
// over the caller's books. AverageRating is nil (JSON null) when the user has
// no rated books in read status - "no data" is distinct from a zero rating.
type BookMetrics struct {
	TotalBooks        int          `json:"totalBooks"`
	TotalRead         int          `json:"totalRead"`
	TotalReading      int          `json:"totalReading"`
	TotalWantToRead   int          `json:"totalWantToRead"`
	GenreDistribution []GenreCount `json:"genreDistribution"`
	AverageRating     *float64     `json:"averageRating"`
}
