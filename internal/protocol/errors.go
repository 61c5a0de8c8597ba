package protocol

// 错误码
const (
	ErrCodeUnknown           = 1000
	ErrCodeInvalidMsg        = 1001
	ErrCodeRateLimit         = 1002 // 速率限制
	ErrCodeInvalidNick       = 2001
	ErrCodeNickTaken         = 2002
	ErrCodeAlreadyJoined     = 2003
	ErrCodeNotJoined         = 2004 // 连接未加入会话
	ErrCodeNotDrawer         = 3001
	ErrCodeWrongState        = 3002
	ErrCodeEmptyDictionary   = 3003
	ErrCodeStorage           = 4001 // 排行榜等存储不可用
	ErrCodeServerMaintenance = 5003 // 服务器维护中
)

// joinError 事件携带的错误标识
const (
	JoinErrInvalidNick = "invalidNick"
	JoinErrNickTaken   = "nickTaken"
)

// ErrorMessages 错误码对应的消息
var ErrorMessages = map[int]string{
	ErrCodeUnknown:           "未知错误",
	ErrCodeInvalidMsg:        "无效的消息格式",
	ErrCodeRateLimit:         "请求过于频繁",
	ErrCodeInvalidNick:       "昵称无效",
	ErrCodeNickTaken:         "昵称已被占用",
	ErrCodeAlreadyJoined:     "已经加入游戏",
	ErrCodeNotJoined:         "尚未加入游戏",
	ErrCodeNotDrawer:         "您不是当前画手",
	ErrCodeWrongState:        "当前阶段不允许该操作",
	ErrCodeEmptyDictionary:   "词库为空",
	ErrCodeStorage:           "存储服务不可用",
	ErrCodeServerMaintenance: "服务器维护中",
}
