package model

import "time"

// Person はサービスの利用者（著者・読者）を表す。
// Hash と Salt は認証サービスが管理する値で、このシステムでは参照しない。
type Person struct {
	ID       int64
	Username string
	Email    string
	Bio      string
	Image    string
	Hash     []byte
	Salt     []byte

	// FollowingPersons は明示的に読み込んだ場合のみ設定される（自分 → 相手）。
	FollowingPersons []FollowedPeople
	// FollowerPersons は明示的に読み込んだ場合のみ設定される（相手 → 自分）。
	FollowerPersons []FollowedPeople

	// Following は閲覧者ごとのレスポンス用フラグ。永続化しない。
	Following bool
}

// FollowedPeople はフォロー関係の有向エッジを表す。
// PersonID がフォローする側、TargetID がフォローされる側。
type FollowedPeople struct {
	PersonID int64
	TargetID int64
}

// Session は外部の認証サービスが発行したログインセッションを表す。
// このシステムは閲覧者の解決にのみ使用し、発行は行わない。
type Session struct {
	ID        string
	PersonID  int64
	Username  string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Viewer はリクエストを行っている認証済みの閲覧者を表す。
// 未認証の場合は nil で表現する。
type Viewer struct {
	PersonID int64
	Username string
}
