// Package session 保存聊天会话元数据。会话从不物理删除，隐藏即 visible=false。
package session

// MongoDB 默认位置。
const (
	DefaultDatabase   = "UrduWhiz"
	DefaultCollection = "Sessions"
)
