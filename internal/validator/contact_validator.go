package validator

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// emailの形式が不正
	ErrInvalidEmail = errors.New("invalid email")

	// 電話番号の形式が不正
	ErrInvalidPhone = errors.New("invalid phone")

	// 長すぎる
	ErrTooLong = errors.New("too long")
)

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	// 数字・空白・+・-・括弧だけ
	phoneRe = regexp.MustCompile(`^\+?[0-9 ()\-]{6,20}$`)
)

// 注文時の連絡先を検証（必須かどうかは呼び出し側で決める）
func ValidateContact(email, phone string) error {
	email = strings.TrimSpace(email)
	if email != "" {
		if len(email) > 255 {
			return ErrTooLong
		}
		if !IsEmailLike(email) {
			return ErrInvalidEmail
		}
	}

	phone = strings.TrimSpace(phone)
	if phone != "" && !phoneRe.MatchString(phone) {
		return ErrInvalidPhone
	}
	return nil
}

// 簡易メール形式をチェック
func IsEmailLike(s string) bool {
	return emailRe.MatchString(s)
}

// 文字数の上限チェック（空は通す）
func MaxLen(s string, n int) error {
	if len(strings.TrimSpace(s)) > n {
		return ErrTooLong
	}
	return nil
}
