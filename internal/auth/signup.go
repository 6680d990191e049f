package auth

import (
	"context"
	"log/slog"

	"github.com/hitoshi/boardman/internal/apiclient"
	"github.com/hitoshi/boardman/internal/model"
)

// SignupAPI は会員登録に使うバックエンド操作。
type SignupAPI interface {
	UploadFiles(ctx context.Context, files []apiclient.FileUpload) (*model.Envelope[[]model.FileRecord], error)
	CreateUser(ctx context.Context, form model.UserForm) (*model.Envelope[model.User], error)
}

// SignupForm は会員登録フォームの入力。
type SignupForm struct {
	Type     model.UserType
	Name     string
	Email    string
	Password string
	// Attachment はプロフィール画像。添付がない場合はnil。
	Attachment *apiclient.FileUpload
}

// Signup は会員登録を行う。
type Signup struct {
	api    SignupAPI
	logger *slog.Logger
}

// NewSignup はSignupを生成する。
func NewSignup(api SignupAPI, logger *slog.Logger) *Signup {
	if logger == nil {
		logger = slog.Default()
	}
	return &Signup{api: api, logger: logger}
}

// Register は会員登録を行う。
// 画像が添付されていればアップロードを完了させてから、そのパスを付けてユーザーを作成する。
// 添付がない場合のimageは空文字列になる。
func (s *Signup) Register(ctx context.Context, form SignupForm) Result[*model.User] {
	userForm := model.UserForm{
		Type:     form.Type,
		Name:     form.Name,
		Email:    form.Email,
		Password: form.Password,
		Image:    "",
	}
	if userForm.Type == "" {
		userForm.Type = model.UserTypeUser
	}

	if form.Attachment != nil {
		files, err := s.api.UploadFiles(ctx, []apiclient.FileUpload{*form.Attachment})
		if err != nil {
			s.logger.Error("profile image upload failed", slog.String("error", err.Error()))
			return TransportFailed[*model.User](err)
		}
		if !files.IsSuccess() {
			return Rejected[*model.User](files.Rejection())
		}
		if len(files.Item) == 0 {
			s.logger.Error("profile image upload returned no files")
			return Rejected[*model.User](model.NewGenericRejection())
		}
		userForm.Image = files.Item[0].Path
	}

	env, err := s.api.CreateUser(ctx, userForm)
	if err != nil {
		s.logger.Error("user creation failed", slog.String("error", err.Error()))
		return TransportFailed[*model.User](err)
	}
	if !env.IsSuccess() {
		return Rejected[*model.User](env.Rejection())
	}

	s.logger.Info("user signed up",
		slog.String("user_id", env.Item.ID.String()),
		slog.String("type", string(env.Item.Type)),
	)
	user := env.Item
	return Succeeded(&user)
}
