// Package memory provides mutex-guarded in-memory implementations of the
// repository interfaces. They back the service tests and the dev "memory"
// storage mode, and enforce the same conditional-update semantics as the
// GORM repositories: a transition and its paired counter change apply inside
// one critical section, so concurrent approvals of the last copy of a book
// resolve to exactly one winner.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"librahub/internal/adapters/persistence/models"
	"librahub/internal/adapters/persistence/repositories"
	"librahub/internal/core/domain"
)

// Store holds all in-memory tables behind one mutex.
type Store struct {
	mu         sync.Mutex
	users      map[uint]*models.User
	categories map[uint]*models.Category
	books      map[uint]*models.Book
	loans      map[uint]*models.Loan
	tokens     map[uint]*models.RefreshToken
	nextID     map[string]uint
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		users:      make(map[uint]*models.User),
		categories: make(map[uint]*models.Category),
		books:      make(map[uint]*models.Book),
		loans:      make(map[uint]*models.Loan),
		tokens:     make(map[uint]*models.RefreshToken),
		nextID:     make(map[string]uint),
	}
}

func (s *Store) allocID(table string) uint {
	s.nextID[table]++
	return s.nextID[table]
}

// Users returns the user repository view of the store.
func (s *Store) Users() repositories.UserRepository { return &userRepo{s} }

// Categories returns the category repository view of the store.
func (s *Store) Categories() repositories.CategoryRepository { return &categoryRepo{s} }

// Books returns the book repository view of the store.
func (s *Store) Books() repositories.BookRepository { return &bookRepo{s} }

// Loans returns the loan repository view of the store.
func (s *Store) Loans() repositories.LoanRepository { return &loanRepo{s} }

// Tokens returns the refresh token repository view of the store.
func (s *Store) Tokens() repositories.RefreshTokenRepository { return &tokenRepo{s} }

// ============================================================
// Users
// ============================================================

type userRepo struct{ s *Store }

func (r *userRepo) Create(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user.ID = r.s.allocID("users")
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	r.s.users[user.ID] = &cp
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id uint) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

func (r *userRepo) GetByUsername(_ context.Context, username string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, user := range r.s.users {
		if user.Username == username {
			cp := *user
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, user := range r.s.users {
		if user.Email == email {
			cp := *user
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *userRepo) Update(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	user.UpdatedAt = time.Now()
	cp := *user
	r.s.users[user.ID] = &cp
	return nil
}

func (r *userRepo) List(_ context.Context, offset, limit int) ([]*models.User, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	users := make([]*models.User, 0, len(r.s.users))
	for _, user := range r.s.users {
		cp := *user
		users = append(users, &cp)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	total := int64(len(users))
	return page(users, offset, limit), total, nil
}

func (r *userRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := r.GetByUsername(ctx, username)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (r *userRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	if err != nil {
		return false, nil
	}
	return true, nil
}

// ============================================================
// Categories
// ============================================================

type categoryRepo struct{ s *Store }

func (r *categoryRepo) Create(_ context.Context, category *models.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	category.ID = r.s.allocID("categories")
	cp := *category
	r.s.categories[category.ID] = &cp
	return nil
}

func (r *categoryRepo) GetByID(_ context.Context, id uint) (*models.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	category, ok := r.s.categories[id]
	if !ok {
		return nil, domain.ErrCategoryNotFound
	}
	cp := *category
	return &cp, nil
}

func (r *categoryRepo) List(_ context.Context) ([]*models.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	categories := make([]*models.Category, 0, len(r.s.categories))
	for _, category := range r.s.categories {
		cp := *category
		categories = append(categories, &cp)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories, nil
}

func (r *categoryRepo) Update(_ context.Context, category *models.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.categories[category.ID]; !ok {
		return domain.ErrCategoryNotFound
	}
	cp := *category
	r.s.categories[category.ID] = &cp
	return nil
}

func (r *categoryRepo) Delete(_ context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.categories[id]; !ok {
		return domain.ErrCategoryNotFound
	}
	delete(r.s.categories, id)
	return nil
}

// ============================================================
// Books
// ============================================================

type bookRepo struct{ s *Store }

func (r *bookRepo) Create(_ context.Context, book *models.Book) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	book.ID = r.s.allocID("books")
	book.CreatedAt = time.Now()
	book.UpdatedAt = book.CreatedAt
	cp := *book
	r.s.books[book.ID] = &cp
	return nil
}

func (r *bookRepo) GetByID(_ context.Context, id uint) (*models.Book, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.getBookLocked(id)
}

func (s *Store) getBookLocked(id uint) (*models.Book, error) {
	book, ok := s.books[id]
	if !ok {
		return nil, domain.ErrBookNotFound
	}
	cp := *book
	if category, ok := s.categories[book.CategoryID]; ok {
		ccp := *category
		cp.Category = &ccp
	}
	return &cp, nil
}

func (r *bookRepo) Update(_ context.Context, book *models.Book) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.books[book.ID]
	if !ok {
		return domain.ErrBookNotFound
	}
	// Copy counters are owned by the loan transitions and SetTotalCopies.
	stored.Title = book.Title
	stored.Author = book.Author
	stored.ISBN = book.ISBN
	stored.Publisher = book.Publisher
	stored.PublicationYear = book.PublicationYear
	stored.Description = book.Description
	stored.CoverImageURL = book.CoverImageURL
	stored.CategoryID = book.CategoryID
	stored.UpdatedAt = time.Now()
	return nil
}

func (r *bookRepo) Delete(_ context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.books[id]; !ok {
		return domain.ErrBookNotFound
	}
	delete(r.s.books, id)
	return nil
}

func (r *bookRepo) Search(_ context.Context, filter repositories.BookSearchFilter, offset, limit int) ([]*models.Book, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var books []*models.Book
	for id := range r.s.books {
		book, _ := r.s.getBookLocked(id)
		if filter.CategoryID != 0 && book.CategoryID != filter.CategoryID {
			continue
		}
		if filter.Query != "" && !matchesQuery(book, filter.Query) {
			continue
		}
		books = append(books, book)
	}
	sort.Slice(books, func(i, j int) bool { return books[i].Title < books[j].Title })
	total := int64(len(books))
	return page(books, offset, limit), total, nil
}

func matchesQuery(book *models.Book, query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(book.Title), q) ||
		strings.Contains(strings.ToLower(book.Author), q) ||
		strings.Contains(strings.ToLower(book.ISBN), q)
}

func (r *bookRepo) SetTotalCopies(_ context.Context, id uint, total int) error {
	if total < 1 {
		return domain.ErrInvalidCopyCount
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	book, ok := r.s.books[id]
	if !ok {
		return domain.ErrBookNotFound
	}
	loaned := book.TotalCopies - book.AvailableCopies
	if total < loaned {
		return domain.ErrCopiesBelowLoaned
	}
	book.TotalCopies = total
	book.AvailableCopies = total - loaned
	book.UpdatedAt = time.Now()
	return nil
}

// ============================================================
// Loans
// ============================================================

type loanRepo struct{ s *Store }

func (r *loanRepo) Create(_ context.Context, loan *models.Loan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	loan.ID = r.s.allocID("loans")
	loan.CreatedAt = time.Now()
	loan.UpdatedAt = loan.CreatedAt
	cp := *loan
	r.s.loans[loan.ID] = &cp
	return nil
}

func (r *loanRepo) GetByID(_ context.Context, id uint) (*models.Loan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.getLoanLocked(id)
}

func (s *Store) getLoanLocked(id uint) (*models.Loan, error) {
	loan, ok := s.loans[id]
	if !ok {
		return nil, domain.ErrLoanNotFound
	}
	cp := *loan
	if book, ok := s.books[loan.BookID]; ok {
		bcp := *book
		cp.Book = &bcp
	}
	if user, ok := s.users[loan.UserID]; ok {
		ucp := *user
		cp.User = &ucp
	}
	return &cp, nil
}

func (r *loanRepo) ListByUser(_ context.Context, userID uint, offset, limit int) ([]*models.Loan, int64, error) {
	return r.list(repositories.LoanListFilter{UserID: userID}, offset, limit)
}

func (r *loanRepo) ListByBook(_ context.Context, bookID uint) ([]*models.Loan, error) {
	loans, _, err := r.list(repositories.LoanListFilter{BookID: bookID}, 0, 0)
	return loans, err
}

func (r *loanRepo) List(_ context.Context, filter repositories.LoanListFilter, offset, limit int) ([]*models.Loan, int64, error) {
	return r.list(filter, offset, limit)
}

func (r *loanRepo) list(filter repositories.LoanListFilter, offset, limit int) ([]*models.Loan, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var loans []*models.Loan
	for id := range r.s.loans {
		loan, _ := r.s.getLoanLocked(id)
		if filter.Status != "" && loan.Status != string(filter.Status) {
			continue
		}
		if filter.UserID != 0 && loan.UserID != filter.UserID {
			continue
		}
		if filter.BookID != 0 && loan.BookID != filter.BookID {
			continue
		}
		loans = append(loans, loan)
	}
	sort.Slice(loans, func(i, j int) bool { return loans[i].ID > loans[j].ID })
	total := int64(len(loans))
	return page(loans, offset, limit), total, nil
}

func (r *loanRepo) Approve(_ context.Context, loanID uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	loan, ok := r.s.loans[loanID]
	if !ok {
		return domain.ErrLoanNotFound
	}
	if loan.Status != string(domain.StatusPending) {
		return domain.ErrInvalidTransition
	}
	book, ok := r.s.books[loan.BookID]
	if !ok {
		return domain.ErrBookNotFound
	}
	if book.AvailableCopies == 0 {
		return domain.ErrNoCopiesAvailable
	}

	book.AvailableCopies--
	loan.Status = string(domain.StatusApproved)
	loan.UpdatedAt = time.Now()
	return nil
}

func (r *loanRepo) Reject(_ context.Context, loanID uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	loan, ok := r.s.loans[loanID]
	if !ok {
		return domain.ErrLoanNotFound
	}
	if loan.Status != string(domain.StatusPending) {
		return domain.ErrInvalidTransition
	}

	loan.Status = string(domain.StatusRejected)
	loan.UpdatedAt = time.Now()
	return nil
}

func (r *loanRepo) Return(_ context.Context, loanID uint, returnedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	loan, ok := r.s.loans[loanID]
	if !ok {
		return domain.ErrLoanNotFound
	}
	status := domain.LoanStatus(loan.Status)
	if status != domain.StatusApproved && status != domain.StatusOverdue {
		return domain.ErrInvalidTransition
	}
	book, ok := r.s.books[loan.BookID]
	if !ok {
		return domain.ErrBookNotFound
	}
	if book.AvailableCopies >= book.TotalCopies {
		return domain.ErrInventoryCorrupt
	}

	book.AvailableCopies++
	loan.Status = string(domain.StatusReturned)
	loan.ReturnDate = &returnedAt
	loan.UpdatedAt = time.Now()
	return nil
}

func (r *loanRepo) MarkOverdueBefore(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var swept int64
	for _, loan := range r.s.loans {
		if loan.Status == string(domain.StatusApproved) && loan.DueDate.Before(now) {
			loan.Status = string(domain.StatusOverdue)
			loan.UpdatedAt = now
			swept++
		}
	}
	return swept, nil
}

func (r *loanRepo) CountActiveByBook(_ context.Context, bookID uint) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var count int64
	for _, loan := range r.s.loans {
		if loan.BookID == bookID && domain.LoanStatus(loan.Status).ReservesCopy() {
			count++
		}
	}
	return count, nil
}

// ============================================================
// Refresh tokens
// ============================================================

type tokenRepo struct{ s *Store }

func (r *tokenRepo) Create(_ context.Context, token *models.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	token.ID = r.s.allocID("tokens")
	token.CreatedAt = time.Now()
	cp := *token
	r.s.tokens[token.ID] = &cp
	return nil
}

func (r *tokenRepo) GetByTokenHash(_ context.Context, tokenHash string) (*models.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, token := range r.s.tokens {
		if token.TokenHash == tokenHash {
			cp := *token
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *tokenRepo) Revoke(_ context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	token, ok := r.s.tokens[id]
	if !ok {
		return domain.ErrNotFound
	}
	now := time.Now()
	token.RevokedAt = &now
	return nil
}

func (r *tokenRepo) RevokeByTokenHash(_ context.Context, tokenHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now()
	for _, token := range r.s.tokens {
		if token.TokenHash == tokenHash && token.RevokedAt == nil {
			token.RevokedAt = &now
		}
	}
	return nil
}

func (r *tokenRepo) RevokeAllByUserID(_ context.Context, userID uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now()
	for _, token := range r.s.tokens {
		if token.UserID == userID && token.RevokedAt == nil {
			token.RevokedAt = &now
		}
	}
	return nil
}

func (r *tokenRepo) DeleteExpired(_ context.Context) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, token := range r.s.tokens {
		if token.IsExpired() {
			delete(r.s.tokens, id)
		}
	}
	return nil
}

// page applies offset/limit slicing to a sorted result set.
func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
