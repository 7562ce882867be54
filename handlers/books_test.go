package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const duneBody = `{"title": "Dune", "genre": "sci-fi", "author": "Frank Herbert", "publicationYear": 1965, "status": "read", "rating": 5}`

func (env *testEnv) updateBook(t *testing.T, session *http.Cookie, bookID, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPut, "/books/"+bookID, strings.NewReader(body))
	if session != nil {
		req.AddCookie(session)
	}
	req = mux.SetURLVars(req, map[string]string{"bookId": bookID})
	rec := httptest.NewRecorder()
	env.books.UpdateBook(context.Background(), rec, req)
	return rec
}

func (env *testEnv) deleteBook(t *testing.T, session *http.Cookie, bookID string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodDelete, "/books/"+bookID, nil)
	if session != nil {
		req.AddCookie(session)
	}
	req = mux.SetURLVars(req, map[string]string{"bookId": bookID})
	rec := httptest.NewRecorder()
	env.books.DeleteBook(context.Background(), rec, req)
	return rec
}

func TestCreateAndListScopedToSession(t *testing.T) {
	env := newTestEnv(t)

	sessionA := env.registerUser(t, "Alice")
	sessionB := env.registerUser(t, "Bob")

	rec := env.createBook(t, sessionA, duneBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	booksA := env.listBooks(t, sessionA, "")
	require.Len(t, booksA, 1)
	assert.Equal(t, "Dune", booksA[0].Title)
	assert.Equal(t, "Frank Herbert", booksA[0].Author)
	assert.Equal(t, 1965, booksA[0].PublicationYear)
	require.NotNil(t, booksA[0].Rating)
	assert.Equal(t, 5, *booksA[0].Rating)
	assert.Nil(t, booksA[0].Review)

	// Another session never sees it
	assert.Empty(t, env.listBooks(t, sessionB, ""))
}

func TestBookEndpointsRequireSession(t *testing.T) {
	env := newTestEnv(t)

	rec := env.createBook(t, nil, duneBody)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// A cookie nobody registered with cannot own books either
	dangling := &http.Cookie{Name: SessionCookieName, Value: uuid.New().String()}
	rec = env.createBook(t, dangling, duneBody)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDuplicateTitleConflict(t *testing.T) {
	env := newTestEnv(t)

	sessionA := env.registerUser(t, "Alice")
	sessionB := env.registerUser(t, "Bob")

	require.Equal(t, http.StatusCreated, env.createBook(t, sessionA, duneBody).Code)

	// Same owner, same title
	assert.Equal(t, http.StatusConflict, env.createBook(t, sessionA, duneBody).Code)

	// Titles are unique globally, so another user collides too
	assert.Equal(t, http.StatusConflict, env.createBook(t, sessionB, duneBody).Code)
}

func TestCreateBookValidation(t *testing.T) {
	env := newTestEnv(t)
	session := env.registerUser(t, "Alice")

	// missing title
	rec := env.createBook(t, session, `{"genre": "sci-fi", "author": "A", "publicationYear": 2000, "status": "read"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// unknown status token
	rec = env.createBook(t, session, `{"title": "X", "genre": "sci-fi", "author": "A", "publicationYear": 2000, "status": "finished"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// rating out of range
	rec = env.createBook(t, session, `{"title": "X", "genre": "sci-fi", "author": "A", "publicationYear": 2000, "status": "read", "rating": 9}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateBookPartial(t *testing.T) {
	env := newTestEnv(t)
	session := env.registerUser(t, "Alice")

	require.Equal(t, http.StatusCreated, env.createBook(t, session,
		`{"title": "Dune", "genre": "sci-fi", "author": "Frank Herbert", "publicationYear": 1965, "status": "reading"}`).Code)
	created := env.listBooks(t, session, "")[0]

	time.Sleep(5 * time.Millisecond)
	rec := env.updateBook(t, session, created.ID, `{"rating": 4, "status": "read"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	updated := env.listBooks(t, session, "")[0]
	assert.Equal(t, "Dune", updated.Title)
	assert.Equal(t, "sci-fi", updated.Genre)
	assert.Equal(t, "Frank Herbert", updated.Author)
	assert.Equal(t, 1965, updated.PublicationYear)
	assert.Equal(t, "read", updated.Status)
	require.NotNil(t, updated.Rating)
	assert.Equal(t, 4, *updated.Rating)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
}

func TestUpdateBookValidation(t *testing.T) {
	env := newTestEnv(t)
	session := env.registerUser(t, "Alice")

	require.Equal(t, http.StatusCreated, env.createBook(t, session, duneBody).Code)
	book := env.listBooks(t, session, "")[0]

	assert.Equal(t, http.StatusBadRequest, env.updateBook(t, session, book.ID, `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, env.updateBook(t, session, book.ID, `{"rating": 0}`).Code)
	assert.Equal(t, http.StatusBadRequest, env.updateBook(t, session, book.ID, `{"status": "done"}`).Code)
	assert.Equal(t, http.StatusBadRequest, env.updateBook(t, session, "not-a-uuid", `{"rating": 3}`).Code)
}

func TestUpdateForeignOrMissingBookIsNotFound(t *testing.T) {
	env := newTestEnv(t)

	sessionA := env.registerUser(t, "Alice")
	sessionB := env.registerUser(t, "Bob")

	require.Equal(t, http.StatusCreated, env.createBook(t, sessionA, duneBody).Code)
	book := env.listBooks(t, sessionA, "")[0]

	// A foreign-owned book looks exactly like a nonexistent one
	assert.Equal(t, http.StatusNotFound, env.updateBook(t, sessionB, book.ID, `{"rating": 1}`).Code)
	assert.Equal(t, http.StatusNotFound, env.updateBook(t, sessionA, uuid.New().String(), `{"rating": 1}`).Code)

	unchanged := env.listBooks(t, sessionA, "")[0]
	require.NotNil(t, unchanged.Rating)
	assert.Equal(t, 5, *unchanged.Rating)
}

func TestUpdateTitleToExistingTitleConflicts(t *testing.T) {
	env := newTestEnv(t)
	session := env.registerUser(t, "Alice")

	require.Equal(t, http.StatusCreated, env.createBook(t, session, duneBody).Code)
	require.Equal(t, http.StatusCreated, env.createBook(t, session,
		`{"title": "Hyperion", "genre": "sci-fi", "author": "Dan Simmons", "publicationYear": 1989, "status": "reading"}`).Code)

	var hyperionID string
	for _, b := range env.listBooks(t, session, "") {
		if b.Title == "Hyperion" {
			hyperionID = b.ID
		}
	}
	require.NotEmpty(t, hyperionID)

	assert.Equal(t, http.StatusConflict, env.updateBook(t, session, hyperionID, `{"title": "Dune"}`).Code)
}

func TestDeleteBook(t *testing.T) {
	env := newTestEnv(t)

	sessionA := env.registerUser(t, "Alice")
	sessionB := env.registerUser(t, "Bob")

	require.Equal(t, http.StatusCreated, env.createBook(t, sessionA, duneBody).Code)
	book := env.listBooks(t, sessionA, "")[0]

	// Foreign delete is a 404 and leaves the row
	assert.Equal(t, http.StatusNotFound, env.deleteBook(t, sessionB, book.ID).Code)
	require.Len(t, env.listBooks(t, sessionA, ""), 1)

	assert.Equal(t, http.StatusOK, env.deleteBook(t, sessionA, book.ID).Code)
	assert.Empty(t, env.listBooks(t, sessionA, ""))

	// Repeat delete and unknown ids are 404, malformed ids 400
	assert.Equal(t, http.StatusNotFound, env.deleteBook(t, sessionA, book.ID).Code)
	assert.Equal(t, http.StatusNotFound, env.deleteBook(t, sessionA, uuid.New().String()).Code)
	assert.Equal(t, http.StatusBadRequest, env.deleteBook(t, sessionA, "42").Code)
}

func TestListBooksFilterAndOrder(t *testing.T) {
	env := newTestEnv(t)
	session := env.registerUser(t, "Alice")

	for _, body := range []string{
		`{"title": "Hyperion", "genre": "sci-fi", "author": "Dan Simmons", "publicationYear": 1989, "status": "read", "rating": 4}`,
		`{"title": "Dune", "genre": "sci-fi", "author": "Frank Herbert", "publicationYear": 1965, "status": "reading"}`,
		`{"title": "Emma", "genre": "romance", "author": "Jane Austen", "publicationYear": 1815, "status": "want_to_read"}`,
	} {
		require.Equal(t, http.StatusCreated, env.createBook(t, session, body).Code)
	}

	books := env.listBooks(t, session, "?genre=sci-fi&orderBy=publicationYear")
	require.Len(t, books, 2)
	assert.Equal(t, "Dune", books[0].Title)
	assert.Equal(t, "Hyperion", books[1].Title)

	books = env.listBooks(t, session, "?status=want_to_read")
	require.Len(t, books, 1)
	assert.Equal(t, "Emma", books[0].Title)

	books = env.listBooks(t, session, "?rating=4")
	require.Len(t, books, 1)
	assert.Equal(t, "Hyperion", books[0].Title)

	// Default ordering is creation time
	books = env.listBooks(t, session, "")
	require.Len(t, books, 3)
	assert.Equal(t, "Hyperion", books[0].Title)

	// orderBy outside the allow-list is rejected, not passed through. This
	// covers real but unsortable columns as well as hostile values (the
	// semicolon is percent-encoded so the pair survives query parsing).
	for _, query := range []string{
		"?orderBy=user_id",
		"?orderBy=1%3BDROP%20TABLE%20books",
	} {
		req := httptest.NewRequest(http.MethodGet, "/books"+query, nil)
		req.AddCookie(session)
		rec := httptest.NewRecorder()
		env.books.ListBooks(context.Background(), rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
	}

	req := httptest.NewRequest(http.MethodGet, "/books?rating=abc", nil)
	req.AddCookie(session)
	rec := httptest.NewRecorder()
	env.books.ListBooks(context.Background(), rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
