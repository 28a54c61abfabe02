package auth

import (
	"errors"
	"strings"
	"testing"
)

// TestGenerateToken тестирует создание JWT токена
func TestGenerateToken(t *testing.T) {
	token, err := GenerateToken("testuser", false)
	if err != nil {
		t.Fatalf("Ошибка генерации JWT: %v", err)
	}

	if token == "" {
		t.Fatal("Пустой токен")
	}

	// Проверяем, что токен содержит точки (разделители частей JWT)
	if strings.Count(token, ".") != 2 {
		t.Errorf("Неверный формат JWT токена: %s", token)
	}
}

// TestValidateToken тестирует валидацию JWT токена
func TestValidateToken(t *testing.T) {
	token, err := GenerateToken("validuser", true)
	if err != nil {
		t.Fatalf("Ошибка генерации JWT: %v", err)
	}

	username, isAdmin, ok := ValidateToken(token)

	if !ok {
		t.Error("Валидный токен определен как недействительный")
	}

	if username != "validuser" {
		t.Errorf("Неверное имя пользователя: ожидалось validuser, получено %s", username)
	}

	if !isAdmin {
		t.Error("Флаг администратора потерялся")
	}
}

// TestValidateInvalidToken тестирует валидацию недействительного JWT
func TestValidateInvalidToken(t *testing.T) {
	testCases := []string{
		"invalid.token.here",
		"",
		"not.a.jwt",
		"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.invalid.signature",
	}

	for _, invalidToken := range testCases {
		username, isAdmin, ok := ValidateToken(invalidToken)

		if ok {
			t.Errorf("Недействительный токен '%s' прошел валидацию", invalidToken)
		}

		if username != "" {
			t.Errorf("Имя пользователя должно быть пустым для недействительного токена, получено %s", username)
		}

		if isAdmin {
			t.Error("isAdmin должен быть false для недействительного токена")
		}
	}
}

// TestGenerateSecureSecret тестирует генерацию секретного ключа
func TestGenerateSecureSecret(t *testing.T) {
	secret1 := GenerateSecureSecret()
	secret2 := GenerateSecureSecret()

	// Проверяем, что секреты разные
	if secret1 == secret2 {
		t.Error("Два последовательных вызова GenerateSecureSecret вернули одинаковый результат")
	}

	// Проверяем минимальную длину (base64 от 32 байт = ~44 символа)
	if len(secret1) < 40 || len(secret2) < 40 {
		t.Error("Секрет слишком короткий")
	}
}

// TestSetJWTSecret тестирует установку пользовательского секретного ключа
func TestSetJWTSecret(t *testing.T) {
	validSecret := GenerateSecureSecret()
	if err := SetJWTSecret(validSecret); err != nil {
		t.Errorf("Ошибка установки валидного секрета: %v", err)
	}

	// Токены, выпущенные после смены секрета, проходят валидацию.
	token, err := GenerateToken("rotated", false)
	if err != nil {
		t.Fatalf("Ошибка генерации токена: %v", err)
	}
	if _, _, ok := ValidateToken(token); !ok {
		t.Error("Токен после смены секрета не прошел валидацию")
	}

	invalidSecrets := []string{
		"too-short",
		"invalid-base64-@#$%",
		"",
	}

	for _, invalidSecret := range invalidSecrets {
		if err := SetJWTSecret(invalidSecret); err == nil {
			t.Errorf("Недействительный секрет '%s' был принят", invalidSecret)
		}
	}
}

// TestPasswordHashing тестирует хеширование и проверку пароля
func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-password")
	if err != nil {
		t.Fatalf("Ошибка хеширования пароля: %v", err)
	}

	if hash == "s3cret-password" {
		t.Fatal("Хеш не должен совпадать с паролем")
	}

	if !CheckPassword(hash, "s3cret-password") {
		t.Error("Правильный пароль не прошел проверку")
	}

	if CheckPassword(hash, "wrong-password") {
		t.Error("Неверный пароль прошел проверку")
	}
}

// TestAdminLogin тестирует вход администратора
func TestAdminLogin(t *testing.T) {
	hash, err := HashPassword("admin-pass")
	if err != nil {
		t.Fatalf("Ошибка хеширования пароля: %v", err)
	}
	account := AdminAccount{Username: "admin", PasswordHash: hash}

	token, err := account.Login("admin", "admin-pass")
	if err != nil {
		t.Fatalf("Ошибка входа: %v", err)
	}

	username, isAdmin, ok := ValidateToken(token)
	if !ok || username != "admin" || !isAdmin {
		t.Errorf("Токен администратора некорректен: %s, admin=%v, ok=%v", username, isAdmin, ok)
	}

	if _, err := account.Login("admin", "wrong"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("Неверный пароль должен возвращать ErrBadCredentials, получено: %v", err)
	}

	if _, err := account.Login("someone", "admin-pass"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("Неверное имя должно возвращать ErrBadCredentials, получено: %v", err)
	}

	empty := AdminAccount{}
	if _, err := empty.Login("admin", "admin-pass"); err == nil {
		t.Error("Ненастроенная учётная запись должна отклонять вход")
	}
}
