package models

import "time"

// Blog — запись блога (список и детальная страница).
type Blog struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Slug       string    `json:"slug"`
	Summary    string    `json:"summary"`
	Content    string    `json:"content"`
	CoverImage string    `json:"cover_image"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Settings — публичные настройки компании (шапка, подвал, контакты).
type Settings struct {
	CompanyName string            `json:"company_name"`
	Email       string            `json:"email"`
	Phone       string            `json:"phone"`
	Address     string            `json:"address"`
	SocialLinks map[string]string `json:"social_links"`
}

// ContactMessage — сообщение из формы обратной связи.
type ContactMessage struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}
