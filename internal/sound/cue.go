// Package sound 终端客户端的提示音
package sound

import "github.com/palemoky/sketchers/internal/protocol"

// Cue 提示音名称，对应 assets/sounds 下同名的 mp3 或 wav 文件
type Cue string

const (
	CueJoined    Cue = "joined"    // 加入成功
	CueYourTurn  Cue = "your_turn" // 轮到自己作画
	CueGuessed   Cue = "guessed"   // 自己猜中
	CueOther     Cue = "other"     // 别人猜中
	CueRoundEnd  Cue = "round_end" // 回合结束
	CueHint      Cue = "hint"      // 揭示新字母
	CueSomeoneIn Cue = "someone_in"
)

var messageCues = map[protocol.MessageType]Cue{
	protocol.MsgJoined:       CueJoined,
	protocol.MsgYouDraw:      CueYourTurn,
	protocol.MsgYouGuessedIt: CueGuessed,
	protocol.MsgWordGuessed:  CueOther,
	protocol.MsgEndRound:     CueRoundEnd,
	protocol.MsgHint:         CueHint,
	protocol.MsgUserJoined:   CueSomeoneIn,
}

// CueFor 返回某类服务器消息对应的提示音，没有则返回 false
func CueFor(t protocol.MessageType) (Cue, bool) {
	cue, ok := messageCues[t]
	return cue, ok
}
