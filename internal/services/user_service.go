package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joshua-takyi/isafari/internal/apperr"
	"github.com/joshua-takyi/isafari/internal/helpers"
	"github.com/joshua-takyi/isafari/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type LocationData struct {
	Country  string `json:"country"`
	Region   string `json:"region"`
	District string `json:"district"`
	Area     string `json:"area"`
}

type RegisterInput struct {
	Email           string          `json:"email" validate:"required,email"`
	Password        string          `json:"password"`
	FirstName       string          `json:"firstName" validate:"required"`
	LastName        string          `json:"lastName" validate:"required"`
	Phone           string          `json:"phone"`
	Country         string          `json:"country"`
	UserType        models.UserType `json:"userType" validate:"required,oneof=traveler service_provider"`
	GoogleIDToken   string          `json:"googleIdToken"`
	CompanyName     string          `json:"companyName"`
	BusinessType    string          `json:"businessType"`
	ServiceLocation string          `json:"serviceLocation"`
	Description     string          `json:"description"`
	LocationData    *LocationData   `json:"locationData"`
}

type AuthResult struct {
	User     *models.User            `json:"user"`
	Provider *models.ServiceProvider `json:"provider,omitempty"`
	Token    string                  `json:"token,omitempty"`
}

// GoogleSignInResult either signs an existing user in or hands back the
// verified profile so the client can finish registration.
type GoogleSignInResult struct {
	*AuthResult
	NeedsRegistration bool               `json:"needs_registration"`
	Profile           *GoogleProfileHint `json:"profile,omitempty"`
}

type GoogleProfileHint struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

type UserService struct {
	users     models.UserRepo
	providers models.ProvidersRepo
	tokens    *helpers.TokenIssuer
	google    helpers.IdentityVerifier
	logger    *slog.Logger
	now       Clock
}

// NewUserService builds the account service. google may be nil, which
// disables Google sign-in.
func NewUserService(users models.UserRepo, providers models.ProvidersRepo, tokens *helpers.TokenIssuer, google helpers.IdentityVerifier, logger *slog.Logger, now Clock) *UserService {
	return &UserService{
		users:     users,
		providers: providers,
		tokens:    tokens,
		google:    google,
		logger:    logger,
		now:       orNow(now),
	}
}

func (us *UserService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Email = models.NormalizeEmail(in.Email)
	if err := models.Validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	user := &models.User{
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Phone:     strings.TrimSpace(in.Phone),
		Country:   strings.TrimSpace(in.Country),
		UserType:  in.UserType,
	}

	if in.GoogleIDToken != "" {
		identity, err := us.verifyGoogle(ctx, in.GoogleIDToken)
		if err != nil {
			return nil, err
		}
		if models.NormalizeEmail(identity.Email) != in.Email {
			return nil, apperr.Validation("email does not match the google account")
		}
		user.GoogleID = identity.Subject
		user.AvatarURL = identity.Picture
		user.IsVerified = identity.EmailVerified
	}

	if user.GoogleID == "" || in.Password != "" {
		if !helpers.IsPasswordStrong(in.Password) {
			return nil, apperr.Validation("password must be at least 8 characters with upper and lower case letters, a number and a symbol")
		}
		hashed, err := helpers.HashPassword(in.Password)
		if err != nil {
			return nil, apperr.Store(err, "failed to secure password")
		}
		user.Password = hashed
	}

	existing, err := us.users.GetUserByEmail(ctx, in.Email)
	if err != nil {
		return nil, apperr.Store(err, "failed to check email")
	}
	if existing != nil {
		return nil, apperr.Conflict("user already exists with this email")
	}

	now := us.now()
	if err := user.BeforeCreate(now); err != nil {
		return nil, apperr.Validation("%v", err)
	}
	if err := us.users.CreateUser(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperr.Conflict("user already exists with this email")
		}
		return nil, apperr.Store(err, "failed to create user")
	}

	result := &AuthResult{User: user}
	if user.UserType == models.UserTypeServiceProvider {
		provider := newProviderProfile(user, in)
		provider.BeforeCreate(now)
		if err := us.providers.CreateProvider(ctx, provider); err != nil {
			// The user and profile are created together or not at all.
			if delErr := us.users.DeleteUser(ctx, user.ID); delErr != nil {
				us.logger.Error("failed to roll back user after provider insert failed",
					"user_id", user.ID.Hex(),
					"error", delErr,
				)
			}
			return nil, apperr.Store(err, "failed to create provider profile")
		}
		result.Provider = provider
	}

	if result.Token, err = us.issue(user); err != nil {
		return nil, err
	}

	us.logger.Info("user registered",
		"user_id", user.ID.Hex(),
		"user_type", user.UserType,
		"google", user.GoogleID != "",
	)
	return result, nil
}

func newProviderProfile(user *models.User, in RegisterInput) *models.ServiceProvider {
	businessName := strings.TrimSpace(in.CompanyName)
	if businessName == "" {
		businessName = fmt.Sprintf("%s %s's Business", user.FirstName, user.LastName)
	}
	provider := &models.ServiceProvider{
		UserID:       user.ID,
		BusinessName: businessName,
		BusinessType: strings.TrimSpace(in.BusinessType),
		Location:     strings.TrimSpace(in.ServiceLocation),
		Description:  strings.TrimSpace(in.Description),
	}
	if in.LocationData != nil {
		provider.Country = in.LocationData.Country
		provider.Region = in.LocationData.Region
		provider.District = in.LocationData.District
		provider.Area = in.LocationData.Area
	}
	return provider
}

func (us *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if err := models.Validate.Var(email, "required,email"); err != nil {
		return nil, apperr.Validation("invalid email format")
	}
	if strings.TrimSpace(password) == "" {
		return nil, apperr.Validation("password is required")
	}

	user, err := us.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Store(err, "failed to load user")
	}
	if user == nil || !user.IsActive {
		return nil, apperr.Unauthorized("invalid credentials")
	}
	if user.Password == "" {
		return nil, apperr.Unauthorized("please use google login for this account")
	}
	if !helpers.CheckPassword(user.Password, password) {
		return nil, apperr.Unauthorized("invalid credentials")
	}

	token, err := us.issue(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token}, nil
}

// GoogleSignIn resolves a Google ID token to a user. An account with the same
// email but no google id gets linked.
func (us *UserService) GoogleSignIn(ctx context.Context, idToken string) (*GoogleSignInResult, error) {
	identity, err := us.verifyGoogle(ctx, idToken)
	if err != nil {
		return nil, err
	}

	user, err := us.users.GetUserByGoogleID(ctx, identity.Subject)
	if err != nil {
		return nil, apperr.Store(err, "failed to load user")
	}
	if user == nil && identity.Email != "" {
		byEmail, err := us.users.GetUserByEmail(ctx, identity.Email)
		if err != nil {
			return nil, apperr.Store(err, "failed to load user")
		}
		if byEmail != nil && byEmail.GoogleID == "" {
			fields := bson.M{"google_id": identity.Subject, "updated_at": us.now()}
			if identity.EmailVerified {
				fields["is_verified"] = true
			}
			user, err = us.users.UpdateUser(ctx, byEmail.ID, fields)
			if err != nil {
				if mongo.IsDuplicateKeyError(err) {
					return nil, apperr.Conflict("google account is already linked to another user")
				}
				return nil, apperr.Store(err, "failed to link google account")
			}
		}
	}

	if user == nil {
		return &GoogleSignInResult{
			NeedsRegistration: true,
			Profile: &GoogleProfileHint{
				Email:     models.NormalizeEmail(identity.Email),
				FirstName: identity.GivenName,
				LastName:  identity.FamilyName,
				AvatarURL: identity.Picture,
			},
		}, nil
	}
	if !user.IsActive {
		return nil, apperr.Unauthorized("account is disabled")
	}

	token, err := us.issue(user)
	if err != nil {
		return nil, err
	}
	return &GoogleSignInResult{AuthResult: &AuthResult{User: user, Token: token}}, nil
}

func (us *UserService) Me(ctx context.Context, userID primitive.ObjectID) (*AuthResult, error) {
	user, err := us.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, apperr.Store(err, "failed to load user")
	}
	if user == nil {
		return nil, apperr.NotFound("user not found")
	}
	result := &AuthResult{User: user}
	if user.UserType == models.UserTypeServiceProvider {
		if result.Provider, err = us.providers.GetProviderByUserID(ctx, user.ID); err != nil {
			return nil, apperr.Store(err, "failed to load provider profile")
		}
	}
	return result, nil
}

// UpdateProfile applies the allowed subset of fields. Unknown keys, email and
// user_type are rejected rather than ignored.
func (us *UserService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, fields map[string]interface{}) (*models.User, error) {
	update, err := pickFields(fields, models.UserProfileFields)
	if err != nil {
		return nil, err
	}
	update["updated_at"] = us.now()

	user, err := us.users.UpdateUser(ctx, userID, update)
	if err != nil {
		return nil, apperr.Store(err, "failed to update user")
	}
	if user == nil {
		return nil, apperr.NotFound("user not found")
	}
	return user, nil
}

func (us *UserService) verifyGoogle(ctx context.Context, idToken string) (*helpers.GoogleIdentity, error) {
	if us.google == nil {
		return nil, apperr.Validation("google sign-in is not configured")
	}
	if strings.TrimSpace(idToken) == "" {
		return nil, apperr.Validation("google id token is required")
	}
	identity, err := us.google.Verify(ctx, idToken)
	if err != nil {
		us.logger.Warn("google token rejected", "error", err)
		return nil, apperr.Unauthorized("invalid google token")
	}
	return identity, nil
}

func (us *UserService) issue(user *models.User) (string, error) {
	token, err := us.tokens.GenerateToken(user.ID.Hex(), user.Email, string(user.UserType), us.now())
	if err != nil {
		return "", apperr.Store(err, "failed to issue token")
	}
	return token, nil
}

// pickFields keeps only allowed keys, trimming string values.
func pickFields(fields map[string]interface{}, allowed []string) (bson.M, error) {
	if len(fields) == 0 {
		return nil, apperr.Validation("no fields to update")
	}
	allow := make(map[string]bool, len(allowed))
	for _, f := range allowed {
		allow[f] = true
	}
	update := bson.M{}
	for key, value := range fields {
		if !allow[key] {
			return nil, apperr.Validation("field %q cannot be updated", key)
		}
		if s, ok := value.(string); ok {
			value = strings.TrimSpace(s)
		}
		update[key] = value
	}
	return update, nil
}
