package db

import "gorm.io/gorm"

// Circle 定义了好友圈模型
// JoinCode 为随机邀请码，凭码加入
type Circle struct {
	gorm.Model
	Name     string
	OwnerID  uint
	JoinCode string `gorm:"unique;not null"`
}

// 圈内成员角色
const (
	CircleRoleOwner  = "owner"
	CircleRoleMember = "member"
)

// CircleMembership 记录圈成员关系
// Circle + User 采用唯一索引，重复加入以冲突处理
type CircleMembership struct {
	gorm.Model
	CircleID uint   `gorm:"index;index:idx_circle_membership_unique,unique"`
	Circle   Circle `gorm:"constraint:OnDelete:CASCADE"`
	UserID   uint   `gorm:"index:idx_circle_membership_unique,unique"`
	Role     string `gorm:"not null;default:member"`
}
