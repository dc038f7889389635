package models

// EnumContractVersion 枚举映射契约版本
//
// state 和 card_to_play 以整数落库。具体的状态迁移由外部规则引擎负责，
// 本层只负责按该契约原样持久化和回读整数值。
const EnumContractVersion = 1

// GameState 游戏生命周期状态
type GameState int

const (
	GameStateLobby      GameState = iota // 等待玩家加入
	GameStateInProgress                  // 对局进行中
	GameStatePaused                      // 暂停
	GameStateFinished                    // 已结束
)

// Valid 检查状态值是否在契约范围内
func (s GameState) Valid() bool {
	return s >= GameStateLobby && s <= GameStateFinished
}

// String 返回状态名称
func (s GameState) String() string {
	switch s {
	case GameStateLobby:
		return "lobby"
	case GameStateInProgress:
		return "in_progress"
	case GameStatePaused:
		return "paused"
	case GameStateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// CardRank 牌面点数（0=2 ... 12=A）
type CardRank int

const (
	RankTwo CardRank = iota
	RankThree
	RankFour
	RankFive
	RankSix
	RankSeven
	RankEight
	RankNine
	RankTen
	RankJack
	RankQueen
	RankKing
	RankAce
)

// Valid 检查点数是否在契约范围内
func (r CardRank) Valid() bool {
	return r >= RankTwo && r <= RankAce
}

// CardSuit 花色
type CardSuit int

const (
	SuitClubs CardSuit = iota
	SuitDiamonds
	SuitHearts
	SuitSpades
)
