// Package services, business logic katmanını barındırır.
//
// Service Layer Pattern nedir?
// Handler (HTTP) ile Repository (DB) arasında oturan katmandır.
// Tüm iş kuralları burada yaşar:
//   - Şifre hash'leme
//   - JWT token oluşturma
//   - Bildirim fan-out koordinasyonu
//
// Service ASLA http.Request/Response bilmez — sadece domain modelleri alır/verir.
// Service ASLA doğrudan SQL çalıştırmaz — Repository interface'i kullanır.
package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/akinalp/smartnotify/database"
	"github.com/akinalp/smartnotify/models"
	"github.com/akinalp/smartnotify/pkg"
	"github.com/akinalp/smartnotify/repository"
)

// AuthService interface'i — dışarıya açık API.
// Handler bu interface'e bağımlıdır, concrete struct'a değil.
type AuthService interface {
	Register(ctx context.Context, req *models.CreateUserRequest) (*AuthTokens, error)
	// Login, kullanıcı girişi yapar. ip ve userAgent cihaz tanıma guard'ı
	// içindir: tanınmayan cihazdan girişte güvenlik bildirimi üretilir.
	Login(ctx context.Context, req *models.LoginRequest, ip, userAgent string) (*AuthTokens, error)
	RefreshToken(ctx context.Context, refreshToken string) (*AuthTokens, error)
	Logout(ctx context.Context, refreshToken string) error
	ValidateAccessToken(tokenString string) (*models.TokenClaims, error)
}

// AuthTokens, login/register sonrası dönen token çifti.
type AuthTokens struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         models.User `json:"user"`
}

// authService, AuthService interface'inin implementasyonu.
type authService struct {
	db          *sql.DB
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	deviceRepo  repository.DeviceRepository
	dispatcher  DispatchService
	jwtSecret   []byte
	accessExp   time.Duration
	refreshExp  time.Duration
}

// NewAuthService, constructor.
//
// db parametresi Register transaction'ı içindir: kullanıcı satırı ve
// default tercih satırı tek transaction'da oluşur — tercihsiz kullanıcı
// yalnızca bilinçli silme ile ortaya çıkabilir.
func NewAuthService(
	db *sql.DB,
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	deviceRepo repository.DeviceRepository,
	dispatcher DispatchService,
	jwtSecret string,
	accessExpMinutes int,
	refreshExpDays int,
) AuthService {
	return &authService{
		db:          db,
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		deviceRepo:  deviceRepo,
		dispatcher:  dispatcher,
		jwtSecret:   []byte(jwtSecret),
		accessExp:   time.Duration(accessExpMinutes) * time.Minute,
		refreshExp:  time.Duration(refreshExpDays) * 24 * time.Hour,
	}
}

// Register, yeni kullanıcı kaydı oluşturur.
//
// Kullanıcı satırı ve default bildirim tercihleri TEK transaction'da yazılır.
// Default'lar: in_app açık, email açık, sms yalnızca telefon verildiyse açık.
func (s *authService) Register(ctx context.Context, req *models.CreateUserRequest) (*AuthTokens, error) {
	// 1. Validation
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	// 2. Bcrypt hash (cost=12)
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), 12)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// 3. User + default tercih satırı
	var displayName *string
	if req.DisplayName != "" {
		displayName = &req.DisplayName
	}

	var email *string
	if req.Email != "" {
		email = &req.Email
	}

	var phone *string
	if req.PhoneNumber != "" {
		phone = &req.PhoneNumber
	}

	user := &models.User{
		Username:     req.Username,
		DisplayName:  displayName,
		Email:        email,
		PhoneNumber:  phone,
		PasswordHash: string(hash),
	}

	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		txUserRepo := repository.NewSQLiteUserRepo(tx)
		txPrefRepo := repository.NewSQLitePreferenceRepo(tx)

		if err := txUserRepo.Create(ctx, user); err != nil {
			return err // ErrAlreadyExists olabilir
		}

		pref := &models.NotificationPreference{
			UserID:       user.ID,
			InAppEnabled: true,
			EmailEnabled: true,
			SMSEnabled:   phone != nil,
		}
		return txPrefRepo.Create(ctx, pref)
	})
	if err != nil {
		return nil, err
	}

	// 4. Token çifti oluştur
	return s.generateTokens(ctx, user)
}

// Login, kullanıcı girişi yapar.
//
// Cihaz tanıma guard'ı:
//   - fingerprint = sha256(ip + "_" + user_agent)
//   - İlk başarılı login'de cihaz sessizce kaydedilir, uyarı ÜRETİLMEZ
//     (kullanıcının her cihazı "yeni" olacaktı) ve first_login temizlenir
//   - Sonraki girişlerde tanınmayan cihaz güvenlik bildirimi tetikler
//
// Guard hataları login'i DÜŞÜRMEZ — cihaz takibi kimlik doğrulamanın
// önüne geçmez, hata loglanır ve giriş tamamlanır.
func (s *authService) Login(ctx context.Context, req *models.LoginRequest, ip, userAgent string) (*AuthTokens, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	// Kullanıcıyı bul
	user, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid username or password", pkg.ErrUnauthorized)
		}
		return nil, err
	}

	// Bcrypt şifre karşılaştırması
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("%w: invalid username or password", pkg.ErrUnauthorized)
	}

	s.runDeviceGuard(ctx, user, ip, userAgent)

	return s.generateTokens(ctx, user)
}

// runDeviceGuard, başarılı şifre kontrolü sonrası cihaz tanıma akışını işletir.
func (s *authService) runDeviceGuard(ctx context.Context, user *models.User, ip, userAgent string) {
	device := &models.KnownDevice{
		UserID:      user.ID,
		Fingerprint: models.DeviceFingerprint(ip, userAgent),
		IP:          ip,
		UserAgent:   userAgent,
	}

	created, err := s.deviceRepo.GetOrCreate(ctx, device)
	if err != nil {
		log.Printf("[auth] device guard failed for user %s: %v", user.ID, err)
		return
	}

	if user.FirstLogin {
		// İlk girişte uyarı bastırılır ve flag BİR defa temizlenir.
		if err := s.userRepo.SetFirstLoginDone(ctx, user.ID); err != nil {
			log.Printf("[auth] failed to clear first_login for user %s: %v", user.ID, err)
			return
		}
		user.FirstLogin = false
		return
	}

	if created {
		if err := s.dispatcher.DispatchDeviceAlert(ctx, user, device); err != nil {
			log.Printf("[auth] failed to dispatch device alert for user %s: %v", user.ID, err)
		}
	}
}

// RefreshToken, süresi dolmuş access token'ı yenilemek için kullanılır.
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*AuthTokens, error) {
	session, err := s.sessionRepo.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid refresh token", pkg.ErrUnauthorized)
		}
		return nil, err
	}

	if time.Now().After(session.ExpiresAt) {
		if delErr := s.sessionRepo.DeleteByID(ctx, session.ID); delErr != nil {
			return nil, fmt.Errorf("failed to delete expired session: %w", delErr)
		}
		return nil, fmt.Errorf("%w: refresh token expired", pkg.ErrUnauthorized)
	}

	// Token rotation: eski session silinir, yenisi oluşturulur
	if err := s.sessionRepo.DeleteByID(ctx, session.ID); err != nil {
		return nil, fmt.Errorf("failed to delete old session: %w", err)
	}

	user, err := s.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	return s.generateTokens(ctx, user)
}

// Logout, refresh token'ı iptal eder (session siler).
func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	session, err := s.sessionRepo.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil
		}
		return err
	}

	return s.sessionRepo.DeleteByID(ctx, session.ID)
}

// ValidateAccessToken, JWT access token'ı doğrular ve claims'i döner.
func (s *authService) ValidateAccessToken(tokenString string) (*models.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})

	if err != nil {
		return nil, fmt.Errorf("%w: invalid token", pkg.ErrUnauthorized)
	}

	claims, ok := token.Claims.(*models.TokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token claims", pkg.ErrUnauthorized)
	}

	return claims, nil
}

// ─── Private Helpers ───

func (s *authService) generateTokens(ctx context.Context, user *models.User) (*AuthTokens, error) {
	now := time.Now()
	accessClaims := &models.TokenClaims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessExp)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "smartnotify",
		},
	}

	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims)
	accessString, err := accessToken.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshBytes := make([]byte, 32)
	if _, err := rand.Read(refreshBytes); err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	refreshString := hex.EncodeToString(refreshBytes)

	session := &models.Session{
		UserID:       user.ID,
		RefreshToken: refreshString,
		ExpiresAt:    now.Add(s.refreshExp),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	user.PasswordHash = ""

	return &AuthTokens{
		AccessToken:  accessString,
		RefreshToken: refreshString,
		User:         *user,
	}, nil
}
