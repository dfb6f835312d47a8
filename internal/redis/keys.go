package redis

import "fmt"

const (
	// RoomCodeKeyPrefix 房间码预占
	RoomCodeKeyPrefix = "spy:room:code:"
)

// BuildRoomCodeKey 构建房间码 Key: spy:room:code:{roomId}
func BuildRoomCodeKey(roomID string) string {
	return fmt.Sprintf("%s%s", RoomCodeKeyPrefix, roomID)
}
