package http

import (
	"context"
	"io"

	"github.com/yanqian/dermaai/internal/domain/auth"
	"github.com/yanqian/dermaai/internal/domain/chatbot"
	"github.com/yanqian/dermaai/internal/domain/classifier"
	"github.com/yanqian/dermaai/internal/domain/routine"
	"github.com/yanqian/dermaai/internal/domain/uploads"
	apperrors "github.com/yanqian/dermaai/pkg/errors"
)

const (
	goodToken     = "good-token"
	testSessionID = "sid-123"
)

var testClaims = auth.Claims{UserID: 7, Email: "ana@example.com", SessionID: testSessionID, TokenType: "access"}

type stubAuth struct {
	registerFn       func(ctx context.Context, req auth.RegisterRequest) (auth.UserView, error)
	loginFn          func(ctx context.Context, req auth.LoginRequest) (auth.LoginResponse, error)
	googleAuthURLFn  func(ctx context.Context, state, challenge string) (string, error)
	googleCallbackFn func(ctx context.Context, code, verifier string) (auth.LoginResponse, error)
	refreshFn        func(ctx context.Context, token string) (auth.LoginResponse, error)
	profileFn        func(ctx context.Context, userID int64) (auth.UserView, error)
	updateFn         func(ctx context.Context, userID int64, req auth.UpdateProfileRequest) (auth.UserView, error)
	logoutFn         func(ctx context.Context, claims auth.Claims) error
}

func (s *stubAuth) Register(ctx context.Context, req auth.RegisterRequest) (auth.UserView, error) {
	if s.registerFn != nil {
		return s.registerFn(ctx, req)
	}
	return auth.UserView{}, nil
}

func (s *stubAuth) Login(ctx context.Context, req auth.LoginRequest) (auth.LoginResponse, error) {
	if s.loginFn != nil {
		return s.loginFn(ctx, req)
	}
	return auth.LoginResponse{}, nil
}

func (s *stubAuth) GoogleAuthURL(ctx context.Context, state, challenge string) (string, error) {
	if s.googleAuthURLFn != nil {
		return s.googleAuthURLFn(ctx, state, challenge)
	}
	return "", apperrors.Wrap("auth_not_configured", "google sign-in is not configured", nil)
}

func (s *stubAuth) GoogleCallback(ctx context.Context, code, verifier string) (auth.LoginResponse, error) {
	if s.googleCallbackFn != nil {
		return s.googleCallbackFn(ctx, code, verifier)
	}
	return auth.LoginResponse{}, nil
}

func (s *stubAuth) ValidateToken(ctx context.Context, token string) (auth.Claims, error) {
	if token == goodToken {
		return testClaims, nil
	}
	return auth.Claims{}, apperrors.Wrap("invalid_token", "invalid token", nil)
}

func (s *stubAuth) Refresh(ctx context.Context, token string) (auth.LoginResponse, error) {
	if s.refreshFn != nil {
		return s.refreshFn(ctx, token)
	}
	return auth.LoginResponse{}, nil
}

func (s *stubAuth) Profile(ctx context.Context, userID int64) (auth.UserView, error) {
	if s.profileFn != nil {
		return s.profileFn(ctx, userID)
	}
	return auth.UserView{ID: userID}, nil
}

func (s *stubAuth) UpdateProfile(ctx context.Context, userID int64, req auth.UpdateProfileRequest) (auth.UserView, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, userID, req)
	}
	return auth.UserView{ID: userID}, nil
}

func (s *stubAuth) Logout(ctx context.Context, claims auth.Claims) error {
	if s.logoutFn != nil {
		return s.logoutFn(ctx, claims)
	}
	return nil
}

type stubClassifier struct {
	classifyFn func(ctx context.Context, kind classifier.Kind, image []byte) (classifier.Result, error)
}

func (s *stubClassifier) Classify(ctx context.Context, kind classifier.Kind, image []byte) (classifier.Result, error) {
	if s.classifyFn != nil {
		return s.classifyFn(ctx, kind, image)
	}
	return classifier.Result{Kind: kind}, nil
}

func (s *stubClassifier) Status() []classifier.Status {
	return []classifier.Status{{Kind: classifier.KindSkin, Model: "skin.onnx"}, {Kind: classifier.KindNail, Model: "nail.onnx"}}
}

func (s *stubClassifier) Warmup(context.Context) {}

func (s *stubClassifier) Close() error { return nil }

type stubChat struct {
	replyFn   func(ctx context.Context, sessionID string, req chatbot.Request) (chatbot.Response, error)
	historyFn func(ctx context.Context, sessionID string) ([]chatbot.ChatTurn, error)
	resetFn   func(ctx context.Context, sessionID string) error
}

func (s *stubChat) Reply(ctx context.Context, sessionID string, req chatbot.Request) (chatbot.Response, error) {
	if s.replyFn != nil {
		return s.replyFn(ctx, sessionID, req)
	}
	return chatbot.Response{}, nil
}

func (s *stubChat) History(ctx context.Context, sessionID string) ([]chatbot.ChatTurn, error) {
	if s.historyFn != nil {
		return s.historyFn(ctx, sessionID)
	}
	return nil, nil
}

func (s *stubChat) Reset(ctx context.Context, sessionID string) error {
	if s.resetFn != nil {
		return s.resetFn(ctx, sessionID)
	}
	return nil
}

type stubRoutine struct {
	generateFn func(ctx context.Context, sessionID string, req routine.Request) (routine.Response, error)
	currentFn  func(ctx context.Context, sessionID string) (routine.Plan, bool, error)
	downloadFn func(ctx context.Context, sessionID string) ([]byte, error)
}

func (s *stubRoutine) Generate(ctx context.Context, sessionID string, req routine.Request) (routine.Response, error) {
	if s.generateFn != nil {
		return s.generateFn(ctx, sessionID, req)
	}
	return routine.Response{}, nil
}

func (s *stubRoutine) Current(ctx context.Context, sessionID string) (routine.Plan, bool, error) {
	if s.currentFn != nil {
		return s.currentFn(ctx, sessionID)
	}
	return routine.Plan{}, false, nil
}

func (s *stubRoutine) Download(ctx context.Context, sessionID string) ([]byte, error) {
	if s.downloadFn != nil {
		return s.downloadFn(ctx, sessionID)
	}
	return nil, nil
}

type stubUploads struct {
	saveFn    func(ctx context.Context, kind, filename string, data []byte, mimeType string) (uploads.StoredImage, error)
	openFn    func(ctx context.Context, key string) (io.ReadCloser, error)
	discarded []string
}

func (s *stubUploads) Save(ctx context.Context, kind, filename string, data []byte, mimeType string) (uploads.StoredImage, error) {
	if s.saveFn != nil {
		return s.saveFn(ctx, kind, filename, data, mimeType)
	}
	return uploads.StoredImage{Key: kind + "/id_" + filename, Filename: filename, Size: int64(len(data)), MimeType: mimeType}, nil
}

func (s *stubUploads) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if s.openFn != nil {
		return s.openFn(ctx, key)
	}
	return nil, apperrors.Wrap("upload_not_found", "upload not found", nil)
}

func (s *stubUploads) Discard(_ context.Context, key string) error {
	s.discarded = append(s.discarded, key)
	return nil
}
