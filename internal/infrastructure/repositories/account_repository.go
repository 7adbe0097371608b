package repositories

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Ayan-Alam-07/VELoop-Backend/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// AccountRepositoryImpl implements domain.AccountRepository using GORM
type AccountRepositoryImpl struct {
	db *gorm.DB
}

// DBAccount represents the database model for Account (with GORM tags)
type DBAccount struct {
	ID                uint              `gorm:"primaryKey"`
	Handle            string            `gorm:"uniqueIndex:idx_accounts_handle;size:8;not null"`
	Email             string            `gorm:"uniqueIndex:idx_accounts_email;size:255;not null"`
	PasswordHash      string            `gorm:"column:password"`
	Provider          string            `gorm:"size:16;not null;default:email"`
	Coins             int64             `gorm:"not null;default:0"`
	ReferralCode      string            `gorm:"uniqueIndex:idx_accounts_referral_code;size:8;not null"`
	ReferredBy        *string           `gorm:"index;size:8"`
	Referrals         []DBReferralEvent `gorm:"foreignKey:ReferrerID"`
	FailedOTPAttempts int               `gorm:"not null;default:0"`
	LockUntil         *time.Time
	OTPRequestCount   int `gorm:"not null;default:0"`
	OTPRequestWindow  *time.Time
	CreatedAt         time.Time `gorm:"index"`
	UpdatedAt         time.Time
}

// TableName returns the table name for GORM
func (DBAccount) TableName() string {
	return "accounts"
}

// DBReferralEvent is one credited referral. The composite unique index is
// the storage-level guard against crediting the same referral twice.
type DBReferralEvent struct {
	ID             uint   `gorm:"primaryKey"`
	ReferrerID     uint   `gorm:"uniqueIndex:idx_referral_events_pair;not null"`
	ReferredHandle string `gorm:"uniqueIndex:idx_referral_events_pair;size:8;not null"`
	ReferredEmail  string `gorm:"size:255"`
	CreatedAt      time.Time
}

// TableName returns the table name for GORM
func (DBReferralEvent) TableName() string {
	return "referral_events"
}

type txKey struct{}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *gorm.DB) domain.AccountRepository {
	return &AccountRepositoryImpl{db: db}
}

// conn returns the transaction carried by ctx, or the base handle
func (r *AccountRepositoryImpl) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

// RunInTx implements domain.AccountRepository. Nested calls join the
// outer transaction.
func (r *AccountRepositoryImpl) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// Create implements domain.AccountRepository
func (r *AccountRepositoryImpl) Create(ctx context.Context, account *domain.Account) error {
	dbAccount := r.domainToDB(account)
	if err := r.conn(ctx).Omit("Referrals").Create(dbAccount).Error; err != nil {
		if column, ok := uniqueViolation(err); ok {
			if column == "email" {
				return domain.ErrAlreadyRegistered
			}
			return domain.ErrIdentifierConflict
		}
		return err
	}
	account.ID = dbAccount.ID
	account.CreatedAt = dbAccount.CreatedAt
	account.UpdatedAt = dbAccount.UpdatedAt
	return nil
}

// FindByEmail implements domain.AccountRepository
func (r *AccountRepositoryImpl) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, "email = ?", email)
}

// FindByHandle implements domain.AccountRepository
func (r *AccountRepositoryImpl) FindByHandle(ctx context.Context, handle string) (*domain.Account, error) {
	return r.findOne(ctx, "handle = ?", handle)
}

// FindByReferralCode implements domain.AccountRepository
func (r *AccountRepositoryImpl) FindByReferralCode(ctx context.Context, code string) (*domain.Account, error) {
	return r.findOne(ctx, "referral_code = ?", code)
}

func (r *AccountRepositoryImpl) findOne(ctx context.Context, query string, arg interface{}) (*domain.Account, error) {
	var dbAccount DBAccount
	err := r.conn(ctx).
		Preload("Referrals", func(db *gorm.DB) *gorm.DB { return db.Order("created_at, id") }).
		Where(query, arg).
		First(&dbAccount).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return r.dbToDomain(&dbAccount), nil
}

// IdentifiersTaken implements domain.AccountRepository
func (r *AccountRepositoryImpl) IdentifiersTaken(ctx context.Context, handle, referralCode string) (bool, error) {
	var count int64
	err := r.conn(ctx).Model(&DBAccount{}).
		Where("handle = ? OR referral_code = ?", handle, referralCode).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreditReferral implements domain.AccountRepository. The event insert and
// the balance increment share one transaction; the increment is a single
// UPDATE expression so concurrent credits never lose each other.
func (r *AccountRepositoryImpl) CreditReferral(ctx context.Context, referrerID uint, event domain.ReferralEvent, bonus int64) error {
	return r.RunInTx(ctx, func(ctx context.Context) error {
		db := r.conn(ctx)

		dbEvent := &DBReferralEvent{
			ReferrerID:     referrerID,
			ReferredHandle: event.ReferredHandle,
			ReferredEmail:  event.ReferredEmail,
			CreatedAt:      event.CreatedAt,
		}
		if err := db.Create(dbEvent).Error; err != nil {
			if _, ok := uniqueViolation(err); ok {
				return domain.ErrAlreadyReferred
			}
			return err
		}

		res := db.Model(&DBAccount{}).
			Where("id = ?", referrerID).
			Update("coins", gorm.Expr("coins + ?", bonus))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrAccountNotFound
		}
		return nil
	})
}

// SaveRateWindow implements domain.AccountRepository. The guard on the
// previous window makes concurrent admissions serialize on the row.
func (r *AccountRepositoryImpl) SaveRateWindow(ctx context.Context, accountID uint, prev *domain.RateWindow, next domain.RateWindow) (bool, error) {
	q := r.conn(ctx).Model(&DBAccount{}).Where("id = ?", accountID)
	if prev == nil {
		q = q.Where("otp_request_window IS NULL")
	} else {
		q = q.Where("otp_request_count = ? AND otp_request_window = ?", prev.Count, prev.Start.UTC())
	}
	res := q.Updates(map[string]interface{}{
		"otp_request_count":  next.Count,
		"otp_request_window": next.Start.UTC(),
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// SetLockout implements domain.AccountRepository
func (r *AccountRepositoryImpl) SetLockout(ctx context.Context, accountID uint, until time.Time) error {
	return r.update(ctx, accountID, map[string]interface{}{
		"lock_until":          until,
		"failed_otp_attempts": gorm.Expr("failed_otp_attempts + 1"),
	})
}

// ClearLockout implements domain.AccountRepository
func (r *AccountRepositoryImpl) ClearLockout(ctx context.Context, accountID uint) error {
	return r.update(ctx, accountID, map[string]interface{}{
		"lock_until":          nil,
		"failed_otp_attempts": 0,
	})
}

// ResetCredential implements domain.AccountRepository
func (r *AccountRepositoryImpl) ResetCredential(ctx context.Context, accountID uint, passwordHash string) error {
	return r.update(ctx, accountID, map[string]interface{}{
		"password":            passwordHash,
		"lock_until":          nil,
		"failed_otp_attempts": 0,
		"otp_request_count":   0,
		"otp_request_window":  nil,
	})
}

func (r *AccountRepositoryImpl) update(ctx context.Context, accountID uint, fields map[string]interface{}) error {
	res := r.conn(ctx).Model(&DBAccount{}).Where("id = ?", accountID).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// uniqueViolation reports whether err is a unique-constraint violation and,
// when it can tell, which accounts column caused it.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != "23505" {
			return "", false
		}
		return columnFromIndex(pgErr.ConstraintName), true
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return "", true
	}
	// sqlite: "UNIQUE constraint failed: accounts.email"
	msg := err.Error()
	if i := strings.Index(msg, "UNIQUE constraint failed: "); i >= 0 {
		rest := msg[i+len("UNIQUE constraint failed: "):]
		if dot := strings.Index(rest, "."); dot >= 0 {
			rest = rest[dot+1:]
		}
		if comma := strings.Index(rest, ","); comma >= 0 {
			rest = rest[:comma]
		}
		return strings.TrimSpace(rest), true
	}
	return "", false
}

func columnFromIndex(name string) string {
	switch name {
	case "idx_accounts_email":
		return "email"
	case "idx_accounts_handle":
		return "handle"
	case "idx_accounts_referral_code":
		return "referral_code"
	}
	return ""
}

// domainToDB converts domain account to database account
func (r *AccountRepositoryImpl) domainToDB(account *domain.Account) *DBAccount {
	provider := string(account.Provider)
	if provider == "" {
		provider = string(domain.ProviderEmail)
	}
	return &DBAccount{
		ID:                account.ID,
		Handle:            account.Handle,
		Email:             account.Email,
		PasswordHash:      account.PasswordHash,
		Provider:          provider,
		Coins:             account.Coins,
		ReferralCode:      account.ReferralCode,
		ReferredBy:        account.ReferredBy,
		FailedOTPAttempts: account.FailedOTPAttempts,
		LockUntil:         account.LockUntil,
		OTPRequestCount:   account.OTPRequestCount,
		OTPRequestWindow:  account.OTPRequestWindow,
	}
}

// dbToDomain converts database account to domain account
func (r *AccountRepositoryImpl) dbToDomain(dbAccount *DBAccount) *domain.Account {
	referrals := make([]domain.ReferralEvent, 0, len(dbAccount.Referrals))
	for _, ev := range dbAccount.Referrals {
		referrals = append(referrals, domain.ReferralEvent{
			ReferredHandle: ev.ReferredHandle,
			ReferredEmail:  ev.ReferredEmail,
			CreatedAt:      ev.CreatedAt,
		})
	}
	return &domain.Account{
		ID:                dbAccount.ID,
		Handle:            dbAccount.Handle,
		Email:             dbAccount.Email,
		PasswordHash:      dbAccount.PasswordHash,
		Provider:          domain.Provider(dbAccount.Provider),
		Coins:             dbAccount.Coins,
		ReferralCode:      dbAccount.ReferralCode,
		ReferredBy:        dbAccount.ReferredBy,
		Referrals:         referrals,
		FailedOTPAttempts: dbAccount.FailedOTPAttempts,
		LockUntil:         dbAccount.LockUntil,
		OTPRequestCount:   dbAccount.OTPRequestCount,
		OTPRequestWindow:  dbAccount.OTPRequestWindow,
		CreatedAt:         dbAccount.CreatedAt,
		UpdatedAt:         dbAccount.UpdatedAt,
	}
}
