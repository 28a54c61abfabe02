package auth

import "errors"

// ErrBadCredentials возвращается при неверной паре логин/пароль.
var ErrBadCredentials = errors.New("неверное имя пользователя или пароль")

// AdminAccount — единственная учётная запись администратора редактора,
// задаваемая конфигурацией (имя и bcrypt-хеш пароля).
type AdminAccount struct {
	Username     string
	PasswordHash string
}

// Login сверяет учётные данные и выпускает токен администратора.
func (a AdminAccount) Login(username, password string) (string, error) {
	if a.Username == "" || a.PasswordHash == "" {
		return "", errors.New("учётная запись администратора не настроена")
	}
	if username != a.Username || !CheckPassword(a.PasswordHash, password) {
		return "", ErrBadCredentials
	}
	return GenerateToken(username, true)
}
