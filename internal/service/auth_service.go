package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/healthportal/internal/access"
	"github.com/healthportal/internal/db"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// MinPasswordLength 注册时的最短密码长度
const MinPasswordLength = 8

var (
	ErrValidation         = errors.New("validation failed")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrPasswordTooShort   = errors.New("password too short")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrPendingApproval    = errors.New("account pending approval")
	ErrUserNotFound       = errors.New("user not found")
)

// 用户名不存在时也做一次哈希比较，避免通过响应时间枚举账号
var dummyPasswordHash, _ = bcrypt.GenerateFromPassword([]byte("healthportal-dummy"), bcrypt.MinCost)

// RegisterInput 注册表单
type RegisterInput struct {
	Username        string `validate:"required,min=3,max=64"`
	Password        string `validate:"required"`
	ConfirmPassword string `validate:"required"`
	Name            string `validate:"required,max=120"`
	OrgName         string `validate:"max=200"`
	Role            string `validate:"required"`
	Location        LocationSelection
}

// UserFilter 后台账号列表筛选
type UserFilter struct {
	Role     string
	Approved *bool
	Search   string
}

// AuthService 负责注册、登录校验与账号审批
type AuthService struct {
	db        *gorm.DB
	locations *LocationService
	validate  *validator.Validate
	cost      int
}

// NewAuthService 构造 AuthService
func NewAuthService(gdb *gorm.DB, locations *LocationService) *AuthService {
	return &AuthService{
		db:        gdb,
		locations: locations,
		validate:  validator.New(),
		cost:      bcrypt.DefaultCost,
	}
}

// Register 创建待审批账号，不会自动登录
func (s *AuthService) Register(input RegisterInput) (*db.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Name = strings.TrimSpace(input.Name)
	input.OrgName = strings.TrimSpace(input.OrgName)

	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, describeValidation(err))
	}
	if len(input.Password) < MinPasswordLength {
		return nil, ErrPasswordTooShort
	}
	if input.Password != input.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}

	role, ok := access.ParseRole(input.Role)
	if !ok || role == access.RoleAdmin {
		return nil, ErrInvalidRole
	}

	taken, err := s.usernameExists(input.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrUsernameTaken
	}

	loc, err := s.locations.Resolve(input.Location)
	if err != nil {
		return nil, err
	}

	return s.createUser(input.Username, input.Password, input.Name, input.OrgName, role, loc.ID, false)
}

// CreateAdmin 供运维脚本创建已审批的管理员
func (s *AuthService) CreateAdmin(username, password, name string, locationID uint) (*db.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(name) == "" {
		return nil, ErrValidation
	}
	if len(password) < MinPasswordLength {
		return nil, ErrPasswordTooShort
	}
	if _, err := s.locations.Get(locationID); err != nil {
		return nil, err
	}
	taken, err := s.usernameExists(username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrUsernameTaken
	}
	return s.createUser(username, password, strings.TrimSpace(name), "", access.RoleAdmin, locationID, true)
}

func (s *AuthService) createUser(username, password, name, org string, role access.Role, locationID uint, approved bool) (*db.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := db.User{
		Username:     username,
		PasswordHash: string(hash),
		Name:         name,
		OrgName:      org,
		Role:         string(role),
		LocationID:   locationID,
		IsApproved:   approved,
	}
	if err := s.db.Create(&user).Error; err != nil {
		// 并发注册同名账号时由唯一索引兜底
		if taken, _ := s.usernameExists(username); taken {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

func (s *AuthService) usernameExists(username string) (bool, error) {
	var count int64
	if err := s.db.Model(&db.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return count > 0, nil
}

// Login 校验账号密码。未知用户与错误密码返回同一个错误；未审批账号单独提示
func (s *AuthService) Login(username, password string) (*db.User, error) {
	var user db.User
	err := s.db.Preload("Location").Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyPasswordHash, []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsApproved {
		return nil, ErrPendingApproval
	}
	return &user, nil
}

// Principal 由会话中的用户 ID 加载调用者；账号不存在或未审批时返回 ErrUnauthenticated
func (s *AuthService) Principal(userID uint) (*access.Principal, error) {
	if userID == 0 {
		return nil, access.ErrUnauthenticated
	}
	var user db.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, access.ErrUnauthenticated
		}
		return nil, fmt.Errorf("load principal: %w", err)
	}
	if !user.IsApproved {
		return nil, access.ErrUnauthenticated
	}
	return &access.Principal{
		UserID:     user.ID,
		Username:   user.Username,
		Name:       user.Name,
		Role:       access.Role(user.Role),
		LocationID: user.LocationID,
	}, nil
}

// ListPending 返回待审批账号，按注册时间排序
func (s *AuthService) ListPending(p *access.Principal) ([]db.User, error) {
	approved := false
	return s.ListUsers(p, UserFilter{Approved: &approved})
}

// ListUsers 返回账号列表
func (s *AuthService) ListUsers(p *access.Principal, filter UserFilter) ([]db.User, error) {
	if err := access.Authorize(p, access.UserApprove, 0); err != nil {
		return nil, err
	}

	query := s.db.Model(&db.User{}).Preload("Location")
	if filter.Role != "" {
		query = query.Where("role = ?", strings.ToUpper(strings.TrimSpace(filter.Role)))
	}
	if filter.Approved != nil {
		query = query.Where("is_approved = ?", *filter.Approved)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := fmt.Sprintf("%%%s%%", search)
		query = query.Where("username LIKE ? OR name LIKE ? OR org_name LIKE ?", like, like, like)
	}

	var users []db.User
	if err := query.Order("created_at ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Approve 审批账号，重复审批视为成功
func (s *AuthService) Approve(p *access.Principal, id uint) (*db.User, error) {
	if err := access.Authorize(p, access.UserApprove, 0); err != nil {
		return nil, err
	}

	var user db.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user.IsApproved {
		return &user, nil
	}
	if err := s.db.Model(&user).Update("is_approved", true).Error; err != nil {
		return nil, fmt.Errorf("approve user: %w", err)
	}
	user.IsApproved = true
	return &user, nil
}

// countPendingUsers 待审批数量，仪表盘使用
func countPendingUsers(gdb *gorm.DB) (int64, error) {
	var count int64
	if err := gdb.Model(&db.User{}).Where("is_approved = ?", false).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count pending users: %w", err)
	}
	return count, nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s:%s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, ",")
}
