// site — типизированные обёртки над REST API для страниц сайта:
// блоги, комментарии к ним, публичные настройки компании и форма обратной связи.
//
// Чтение публичных ресурсов идёт через публичный клиент (работает и без
// входа), изменения комментариев — через клиент сессии.
package site

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/pribylovaa/techsite/internal/apiclient"
	"github.com/pribylovaa/techsite/internal/comments"
	"github.com/pribylovaa/techsite/internal/models"
	"github.com/pribylovaa/techsite/pkg/log"
)

const (
	blogsPath    = "/api/core/blogs/"
	commentsPath = "/api/core/comments/"
	settingsPath = "/api/core/settings/"
	contactPath  = "/api/core/contact/"
)

var (
	// ErrEmptyID — пустой идентификатор ресурса.
	ErrEmptyID = errors.New("empty id")
	// ErrEmptyContent — пустой текст комментария.
	ErrEmptyContent = errors.New("empty comment content")
	// ErrInvalidContact — не заполнены обязательные поля обращения.
	ErrInvalidContact = errors.New("name, email and message are required")
)

// Service — ресурсы сайта поверх пары клиентов одной сессии.
type Service struct {
	api    *apiclient.Client
	public *apiclient.Client
}

// New: api — аутентифицированный клиент, public — публичный.
func New(api, public *apiclient.Client) *Service {
	return &Service{api: api, public: public}
}

// BlogDetail — пост с деревом комментариев.
type BlogDetail struct {
	models.Blog
	Comments []comments.Node `json:"comments"`
}

// ListBlogs возвращает опубликованные посты.
func (s *Service) ListBlogs(ctx context.Context) ([]models.Blog, error) {
	const op = "site.ListBlogs"

	var out []models.Blog
	if err := s.list(ctx, s.public, blogsPath, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// Blog возвращает пост по id.
func (s *Service) Blog(ctx context.Context, id string) (*models.Blog, error) {
	const op = "site.Blog"

	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyID)
	}

	var out models.Blog
	if err := s.public.Do(ctx, http.MethodGet, blogsPath+url.PathEscape(id)+"/", nil, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// BlogComments — плоский список комментариев поста в порядке API.
func (s *Service) BlogComments(ctx context.Context, blogID string) ([]models.Comment, error) {
	const op = "site.BlogComments"

	if strings.TrimSpace(blogID) == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyID)
	}

	var out []models.Comment
	if err := s.list(ctx, s.public, blogCommentsPath(blogID), &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// BlogWithComments собирает страницу поста: сам пост и двухуровневое дерево комментариев.
func (s *Service) BlogWithComments(ctx context.Context, id string) (*BlogDetail, error) {
	blog, err := s.Blog(ctx, id)
	if err != nil {
		return nil, err
	}

	list, err := s.BlogComments(ctx, id)
	if err != nil {
		return nil, err
	}

	return &BlogDetail{Blog: *blog, Comments: comments.Build(list).Roots()}, nil
}

// CreateComment публикует комментарий или ответ (req.ParentID != nil).
func (s *Service) CreateComment(ctx context.Context, blogID string, req models.CreateCommentRequest) (*models.Comment, error) {
	const op = "site.CreateComment"

	lg := log.From(ctx).With("op", op, "blog_id", blogID, "reply", req.ParentID != nil)

	if strings.TrimSpace(blogID) == "" {
		lg.Warn("invalid argument: empty blog_id")
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyID)
	}
	if strings.TrimSpace(req.Content) == "" {
		lg.Warn("invalid argument: empty content")
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyContent)
	}

	var out models.Comment
	if err := s.api.Do(ctx, http.MethodPost, blogCommentsPath(blogID), req, &out); err != nil {
		lg.Info("comment rejected", slog.String("kind", apiclient.KindOf(err).String()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Debug("comment created", slog.String("comment_id", out.ID))

	return &out, nil
}

// UpdateComment меняет текст своего комментария.
func (s *Service) UpdateComment(ctx context.Context, id string, req models.UpdateCommentRequest) (*models.Comment, error) {
	const op = "site.UpdateComment"

	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyID)
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyContent)
	}

	var out models.Comment
	if err := s.api.Do(ctx, http.MethodPatch, commentsPath+url.PathEscape(id)+"/", req, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// DeleteComment удаляет комментарий.
func (s *Service) DeleteComment(ctx context.Context, id string) error {
	const op = "site.DeleteComment"

	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%s: %w", op, ErrEmptyID)
	}

	if err := s.api.Do(ctx, http.MethodDelete, commentsPath+url.PathEscape(id)+"/", nil, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Settings — публичные реквизиты компании.
func (s *Service) Settings(ctx context.Context) (*models.Settings, error) {
	const op = "site.Settings"

	var out models.Settings
	if err := s.public.Do(ctx, http.MethodGet, settingsPath, nil, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// SendContact отправляет сообщение из формы обратной связи.
func (s *Service) SendContact(ctx context.Context, msg models.ContactMessage) error {
	const op = "site.SendContact"

	if strings.TrimSpace(msg.Name) == "" || strings.TrimSpace(msg.Email) == "" || strings.TrimSpace(msg.Message) == "" {
		return fmt.Errorf("%s: %w", op, ErrInvalidContact)
	}

	if err := s.public.Do(ctx, http.MethodPost, contactPath, msg, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func blogCommentsPath(blogID string) string {
	return blogsPath + url.PathEscape(blogID) + "/comments/"
}

// list читает коллекцию: бэкенд отдаёт либо голый массив,
// либо страницу вида {"count": N, "results": [...]}.
func (s *Service) list(ctx context.Context, c *apiclient.Client, path string, out any) error {
	resp, err := c.Request(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return err
	}

	var page struct {
		Results json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(resp.Body, &page); err == nil && len(page.Results) > 0 {
		return json.Unmarshal(page.Results, out)
	}

	if err := resp.Decode(out); err != nil {
		return fmt.Errorf("decode list: %w", err)
	}

	return nil
}
