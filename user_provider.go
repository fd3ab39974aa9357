package starter

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

// UserStore is the lookup surface the credentials path needs
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
}

// userStoreAdapter narrows the Users repository to the UserStore shape
type userStoreAdapter struct {
	users Users
}

func (a userStoreAdapter) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.users.GetByEmail(ctx, email)
}

func (a userStoreAdapter) GetByID(ctx context.Context, id string) (*User, error) {
	return a.users.GetByID(ctx, id)
}

// NewUserStore adapts the Users repository for the identity provider
func NewUserStore(users Users) UserStore {
	return userStoreAdapter{users: users}
}

// UserProvider resolves identities for the credentials path. It is the
// authorize hook the session layer calls on password sign-in.
type UserProvider struct {
	store        UserStore
	activitySink ActivitySink
	logger       Logger
}

// NewUserProvider will create a new UserProvider
func NewUserProvider(store UserStore) *UserProvider {
	return &UserProvider{
		store:        store,
		activitySink: noopActivitySink{},
		logger:       defLogger{},
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	u.logger = l
	return u
}

// WithActivitySink configures the sink that records successful sign-ins.
func (u *UserProvider) WithActivitySink(sink ActivitySink) *UserProvider {
	u.activitySink = normalizeActivitySink(sink)
	return u
}

// VerifyIdentity loads the non-deleted user by email and checks the
// password. Unknown email, an account without a password hash (OAuth
// only), and a wrong password all fail with ErrInvalidCredentials so a
// caller cannot tell the cases apart.
func (u *UserProvider) VerifyIdentity(ctx context.Context, email, password string) (Identity, error) {
	user, err := u.store.GetByEmail(ctx, email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user during verification")
	}

	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if !user.HasPassword() {
		return nil, ErrInvalidCredentials
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	// Sign-in audit happens here so both the form action and any other
	// credentials caller record exactly one entry.
	if err := RecordActivity(ctx, u.activitySink, user.ID, ActivitySignIn); err != nil {
		u.logger.Error("failed to record sign-in activity", "error", err)
	}

	return NewIdentityFromUser(user), nil
}

func (u *UserProvider) FindIdentityByID(ctx context.Context, id string) (Identity, error) {
	user, err := u.store.GetByID(ctx, id)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}

	if user == nil {
		return nil, ErrIdentityNotFound
	}

	return NewIdentityFromUser(user), nil
}

type authIdentity struct {
	id    string
	name  string
	email string
	role  string
}

func (a authIdentity) ID() string {
	return a.id
}

func (a authIdentity) Name() string {
	return a.name
}

func (a authIdentity) Email() string {
	return a.email
}

func (a authIdentity) Role() string {
	return a.role
}

var _ Identity = authIdentity{}

// NewIdentityFromUser maps a stored user onto the identity the token
// layer consumes
func NewIdentityFromUser(user *User) Identity {
	if user == nil {
		return nil
	}
	return authIdentity{
		id:    user.ID.String(),
		name:  user.Name,
		email: user.Email,
		role:  string(user.Role),
	}
}
