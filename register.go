package garden

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/nyaruka/phonenumbers"
	"github.com/uptrace/bun"
)

// RegisterUserMessage carries a new account
type RegisterUserMessage struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
	Password  string `json:"password"`
	UseHashid bool   `json:"-"`
}

// Registrar creates accounts
type Registrar struct {
	repo    RepositoryManager
	region  string
	timeout time.Duration
}

// NewRegistrar returns a Registrar normalising phone numbers for region
func NewRegistrar(repo RepositoryManager, region string) *Registrar {
	if region == "" {
		region = "US"
	}
	return &Registrar{repo: repo, region: region, timeout: 10 * time.Second}
}

// RegisterUser creates the user after checking email and username are free
func (r *Registrar) RegisterUser(ctx context.Context, msg RegisterUserMessage) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	phone, err := NormalizePhone(msg.Phone, r.region)
	if err != nil {
		return nil, err
	}

	hash, err := HashPassword(msg.Password)
	if err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(msg.Email))
	user := &User{
		FirstName:    strings.TrimSpace(msg.FirstName),
		LastName:     strings.TrimSpace(msg.LastName),
		Username:     getUsername(msg.Username, email),
		Email:        email,
		Phone:        phone,
		Role:         msg.Role,
		PasswordHash: hash,
	}
	if user.Role == "" {
		user.Role = RoleMember
	}

	if msg.UseHashid {
		id, err := hashid.NewUUID(user.Email)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "could not derive user id")
		}
		user.ID = id
	}

	err = r.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		taken, err := r.repo.Users().IdentifierTakenTx(ctx, tx, user.Email, user.Username)
		if err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "could not check identifiers")
		}
		if taken {
			return ErrUserExists
		}

		// a concurrent registration can still win the race to the insert
		if _, err := r.repo.Users().CreateTx(ctx, tx, user); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// NormalizePhone parses raw for region and formats it as E.164. Empty
// input is allowed.
func NormalizePhone(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}

	num, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return "", wrapSentinel(ErrInvalidPhone, err, map[string]any{"phone": raw})
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", ErrInvalidPhone
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

func getUsername(username, email string) string {
	username = strings.TrimSpace(username)
	if username != "" {
		return username
	}

	if strings.Contains(email, "@") {
		username = strings.Split(email, "@")[0]
	}

	return username
}
