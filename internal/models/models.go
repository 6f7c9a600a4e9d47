package models

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"       json:"id"`
	Username     string `gorm:"size:80;uniqueIndex;not null"   json:"username"`
	PasswordHash string `gorm:"not null"                       json:"-"`
}

type Product struct {
	ID          uint    `gorm:"primaryKey;autoIncrement"  json:"id"`
	Name        string  `gorm:"size:120;not null"         json:"name"`
	Price       float64 `gorm:"not null"                  json:"price"`
	Description string  `gorm:"type:text;default:''"      json:"description"`
}

type CartItem struct {
	ID        uint `gorm:"primaryKey;autoIncrement"  json:"id"`
	UserID    uint `gorm:"index;not null"            json:"user_id"`
	ProductID uint `gorm:"index;not null"            json:"product_id"`
}

// Session is the server side half of a session token: the token's jti
// points at a row here, so logging out revokes the token before it expires.
type Session struct {
	ID        string `gorm:"primaryKey;size:36"  json:"id"`
	UserID    uint   `gorm:"index;not null"      json:"user_id"`
	ExpiresAt int64  `gorm:"not null"            json:"expires_at"`
	Revoked   bool   `gorm:"default:false"       json:"revoked"`
}

// CartLine is a cart row joined with the product it points at.
type CartLine struct {
	ID           uint    `json:"id"`
	UserID       uint    `json:"user_id"`
	ProductID    uint    `json:"product_id"`
	ProductName  string  `json:"product_name"`
	ProductPrice float64 `json:"product_price"`
}

func All() []any {
	return []any{&User{}, &Product{}, &CartItem{}, &Session{}}
}
