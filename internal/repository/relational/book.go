package relational

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/garnizeh/cddrecords/internal/db"
	"github.com/garnizeh/cddrecords/pkg/jsoncol"
	"github.com/garnizeh/cddrecords/pkg/models"
	"github.com/garnizeh/cddrecords/pkg/repository"
)

var bookColumns = []string{"id", "isbn", "title", "author", "publisher", "language", "published_year", "description", "created_at", "updated_at"}

func scanBook(s db.Scanner) (models.Book, error) {
	var b models.Book
	err := s.Scan(&b.ID, &b.ISBN, jsoncol.Col(&b.Title), &b.Author, &b.Publisher, &b.Language,
		&b.PublishedYear, &b.Description, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

// CreateBook stores the ISBN without separators.
func (r *Repo) CreateBook(ctx context.Context, b *models.Book) (int64, error) {
	if b == nil {
		return 0, fmt.Errorf("book is nil")
	}
	if err := b.Validate(); err != nil {
		return 0, err
	}
	title, err := textCodec.Encode(b.Title)
	if err != nil {
		return 0, err
	}
	b.ISBN = models.NormalizeISBN(b.ISBN)

	now := models.NowMillis()
	q := r.conn.Builder().Insert("books").Columns(bookColumns[1:]...).
		Values(b.ISBN, title, b.Author, b.Publisher, b.Language, b.PublishedYear, b.Description, now, now)
	id, err := insertReturningID(ctx, r.conn, q, "book", b.ISBN)
	if err != nil {
		return 0, err
	}

	b.ID, b.CreatedAt, b.UpdatedAt = id, now, now
	return id, nil
}

func (r *Repo) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	q := r.conn.Builder().Select(bookColumns...).From("books").Where(sq.Eq{"id": id})
	return getOne(ctx, r.conn, q, scanBook, "book", strconv.FormatInt(id, 10))
}

func (r *Repo) GetBookByISBN(ctx context.Context, isbn string) (*models.Book, error) {
	isbn = models.NormalizeISBN(isbn)
	q := r.conn.Builder().Select(bookColumns...).From("books").Where(sq.Eq{"isbn": isbn})
	return getOne(ctx, r.conn, q, scanBook, "book", isbn)
}

func (r *Repo) ExistsBookByISBN(ctx context.Context, isbn string) (bool, error) {
	isbn = models.NormalizeISBN(isbn)
	return exists(ctx, r.conn, "books", sq.Eq{"isbn": isbn}, "book", isbn)
}

// FindOrCreateBookByISBN is safe against a concurrent insert of the same
// ISBN: the losing insert re-reads the winner's row.
func (r *Repo) FindOrCreateBookByISBN(ctx context.Context, b *models.Book) (*models.Book, bool, error) {
	if b == nil {
		return nil, false, fmt.Errorf("book is nil")
	}
	if err := b.Validate(); err != nil {
		return nil, false, err
	}

	existing, err := r.GetBookByISBN(ctx, b.ISBN)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	if _, err := r.CreateBook(ctx, b); err != nil {
		if !errors.Is(err, repository.ErrUniquenessViolation) {
			return nil, false, err
		}
		existing, err := r.GetBookByISBN(ctx, b.ISBN)
		if err != nil {
			return nil, false, err
		}
		if existing == nil {
			return nil, false, fmt.Errorf("book %q vanished after collision: %w", b.ISBN, repository.ErrNotFound)
		}
		r.logger.Info("book created concurrently, using stored row", "isbn", b.ISBN)
		return existing, false, nil
	}
	return b, true, nil
}

func (r *Repo) UpdateBook(ctx context.Context, b *models.Book) error {
	if b == nil {
		return fmt.Errorf("book is nil")
	}
	if err := b.Validate(); err != nil {
		return err
	}
	title, err := textCodec.Encode(b.Title)
	if err != nil {
		return err
	}
	b.ISBN = models.NormalizeISBN(b.ISBN)

	q := r.conn.Builder().Update("books").
		Set("isbn", b.ISBN).
		Set("title", title).
		Set("author", b.Author).
		Set("publisher", b.Publisher).
		Set("language", b.Language).
		Set("published_year", b.PublishedYear).
		Set("description", b.Description).
		Where(sq.Eq{"id": b.ID})
	updated, err := updateReturningTouch(ctx, r.conn, q, "book", strconv.FormatInt(b.ID, 10))
	if err != nil {
		return err
	}
	b.UpdatedAt = updated
	return nil
}

func (r *Repo) DeleteBook(ctx context.Context, id int64) error {
	return deleteWhere(ctx, r.conn, "books", sq.Eq{"id": id}, "book", strconv.FormatInt(id, 10))
}

func (r *Repo) SearchBooks(ctx context.Context, f repository.BookFilter, p repository.PageRequest) (repository.Page[models.Book], error) {
	where := sq.And{}
	if f.Author != "" {
		where = append(where, sq.Eq{"author": f.Author})
	}
	if f.Language != "" {
		where = append(where, sq.Eq{"language": f.Language})
	}
	if kw := strings.TrimSpace(f.Keyword); kw != "" {
		where = append(where, keyword(kw, "isbn", "title", "author", "publisher", "description"))
	}

	base := r.conn.Builder().Select().From("books").Where(where)
	return page(ctx, r.conn, base, bookColumns, "id", p, scanBook, "book")
}
