package nats

import "fmt"

const (
	// SubjectRoomStatePrefix 房间快照主题前缀
	SubjectRoomStatePrefix = "spy.room."

	// SubjectGameFinished 对局结束主题
	SubjectGameFinished = "spy.game.finished"

	// SubjectRoomStateAll 订阅所有房间快照
	SubjectRoomStateAll = "spy.room.*.state"
)

// BuildRoomStateSubject 构建房间快照主题 spy.room.{roomId}.state
func BuildRoomStateSubject(roomID string) string {
	return fmt.Sprintf("%s%s.state", SubjectRoomStatePrefix, roomID)
}
