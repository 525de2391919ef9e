package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"app/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const (
	CtxStaffIDKey   = "staff_id"   // int64
	CtxStaffRoleKey = "staff_role" // string
)

// POS/店舗スタッフ向けのbearer検証ミドルウェア。
func AuthStaff(cfg config.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			staffID, ok := StaffFromAuthHeader(cfg.JWTSecret, c.Request().Header.Get("Authorization"))
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			c.Set(CtxStaffIDKey, staffID)
			c.Set(CtxStaffRoleKey, "STAFF")
			return next(c)
		}
	}
}

// StaffFromAuthHeaderはAuthorizationヘッダからスタッフトークンを検証する。
// 注文作成のような「スタッフなら営業時間ゲート免除」の判定にも使うので関数で公開。
func StaffFromAuthHeader(secret string, authz string) (int64, bool) {
	if authz == "" {
		return 0, false
	}

	//Bearer形式か確認してtokenを抜く
	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return 0, false
	}
	rawToken := strings.TrimSpace(parts[1])
	if rawToken == "" {
		return 0, false
	}

	token, err := jwt.Parse(rawToken, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || token == nil || !token.Valid {
		return 0, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, false
	}

	//roleがSTAFF/ADMINであること
	role, err := parseString(claims["role"])
	if err != nil || (role != "STAFF" && role != "ADMIN") {
		return 0, false
	}

	staffID, err := parseSubject(claims["sub"])
	if err != nil || staffID <= 0 {
		return 0, false
	}

	return staffID, true
}

type errorResponse struct {
	Error string `json:"error"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Error: msg}
}

func parseSubject(v interface{}) (int64, error) {
	switch t := v.(type) {
	case float64:
		return int64(t), nil
	case string:
		return strconv.ParseInt(t, 10, 64)
	default:
		return 0, errors.New("invalid sub")
	}
}

func parseString(v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errors.New("invalid string")
	}
	return s, nil
}
