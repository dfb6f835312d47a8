package game

import (
	"net/http"

	apperr "sudooom.spy/pkg/errors"
)

// 游戏错误码 20001-20099
const (
	CodeUnknownRoom             = 20001
	CodePlayerNameTaken         = 20002
	CodePlayerNotFound          = 20003
	CodePlayerNotActive         = 20004
	CodeGameNotInClueState      = 20005
	CodeGameNotInVoteState      = 20006
	CodeGameAlreadyStarted      = 20007
	CodeGameNotStarted          = 20008
	CodeGameAlreadyEnded        = 20009
	CodeInvalidVoteTarget       = 20010
	CodeNotEnoughPlayers        = 20011
	CodeWordSupplierUnavailable = 20012
	CodeInvalidPlayerName       = 20013
	CodeInvalidClue             = 20014
	CodeClueRevealsWord         = 20015
	CodeRoomCodeExhausted       = 20016
)

var (
	ErrUnknownRoom             = apperr.NewErrorWithStatus(CodeUnknownRoom, "room not found", http.StatusNotFound)
	ErrPlayerNameTaken         = apperr.NewErrorWithStatus(CodePlayerNameTaken, "player name already taken", http.StatusConflict)
	ErrPlayerNotFound          = apperr.NewErrorWithStatus(CodePlayerNotFound, "player not in room", http.StatusNotFound)
	ErrPlayerNotActive         = apperr.NewErrorWithStatus(CodePlayerNotActive, "player is not active", http.StatusConflict)
	ErrGameNotInClueState      = apperr.NewErrorWithStatus(CodeGameNotInClueState, "game is not accepting clues", http.StatusConflict)
	ErrGameNotInVoteState      = apperr.NewErrorWithStatus(CodeGameNotInVoteState, "game is not accepting votes", http.StatusConflict)
	ErrGameAlreadyStarted      = apperr.NewErrorWithStatus(CodeGameAlreadyStarted, "game already started", http.StatusConflict)
	ErrGameNotStarted          = apperr.NewErrorWithStatus(CodeGameNotStarted, "game not started", http.StatusConflict)
	ErrGameAlreadyEnded        = apperr.NewErrorWithStatus(CodeGameAlreadyEnded, "game already ended", http.StatusConflict)
	ErrInvalidVoteTarget       = apperr.NewError(CodeInvalidVoteTarget, "vote target is not an active player")
	ErrNotEnoughPlayers        = apperr.NewErrorWithStatus(CodeNotEnoughPlayers, "not enough players", http.StatusConflict)
	ErrWordSupplierUnavailable = apperr.NewErrorWithStatus(CodeWordSupplierUnavailable, "word supplier unavailable", http.StatusServiceUnavailable)
	ErrInvalidPlayerName       = apperr.NewError(CodeInvalidPlayerName, "invalid player name")
	ErrInvalidClue             = apperr.NewError(CodeInvalidClue, "invalid clue")
	ErrClueRevealsWord         = apperr.NewError(CodeClueRevealsWord, "clue is too close to your word")
	ErrRoomCodeExhausted       = apperr.NewErrorWithStatus(CodeRoomCodeExhausted, "could not allocate a room code", http.StatusServiceUnavailable)
)
