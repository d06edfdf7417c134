package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleAdmin    Role = "ADMIN"
)

// MembershipLevel is the loyalty tier derived from accumulated order points.
type MembershipLevel string

const (
	LevelBronze  MembershipLevel = "BRONZE"
	LevelSilver  MembershipLevel = "SILVER"
	LevelGold    MembershipLevel = "GOLD"
	LevelDiamond MembershipLevel = "DIAMOND"
)

// PointsPerUnit is the order total that earns one loyalty point.
var PointsPerUnit = decimal.NewFromInt(10000)

// LevelForPoints maps a point total to its tier.
func LevelForPoints(points int64) MembershipLevel {
	switch {
	case points >= 10000:
		return LevelDiamond
	case points >= 5000:
		return LevelGold
	case points >= 1000:
		return LevelSilver
	default:
		return LevelBronze
	}
}

// Rank orders tiers from BRONZE (0) upward. Unknown levels rank below BRONZE.
func (l MembershipLevel) Rank() int {
	switch l {
	case LevelBronze:
		return 0
	case LevelSilver:
		return 1
	case LevelGold:
		return 2
	case LevelDiamond:
		return 3
	}
	return -1
}

func (l MembershipLevel) Valid() bool { return l.Rank() >= 0 }

// PointsForTotal returns floor(total / 10000); non-positive totals earn nothing.
func PointsForTotal(total decimal.Decimal) int64 {
	if !total.IsPositive() {
		return 0
	}
	return total.Div(PointsPerUnit).Floor().IntPart()
}

// User is a storefront account.
type User struct {
	ID              string          `json:"id"`
	Email           string          `json:"email"`
	FullName        string          `json:"fullName"`
	PasswordHash    string          `json:"-"`
	Role            Role            `json:"role"`
	Active          bool            `json:"active"`
	OrderPoints     int64           `json:"orderPoints"`
	MembershipLevel MembershipLevel `json:"membershipLevel"`
	CreatedAt       time.Time       `json:"createdAt"`
}
