package playback

import (
	"sync"

	"github.com/iabetor/speakit/internal/logger"
)

// State 表示播放器的当前状态。
type State int

const (
	// StateIdle 空闲，没有活动的输出。
	StateIdle State = iota
	// StatePlaying 正在播放。
	StatePlaying
	// StatePaused 输出时钟已挂起。
	StatePaused
)

var stateNames = [...]string{
	"Idle",
	"Playing",
	"Paused",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "Unknown"
}

// StateMachine 管理线程安全的状态转换。
type StateMachine struct {
	mu       sync.RWMutex
	current  State
	onChange func(from, to State)
}

// NewStateMachine 创建一个初始状态为 Idle 的状态机。
func NewStateMachine() *StateMachine {
	return &StateMachine{current: StateIdle}
}

// SetOnChange 注册状态变化时的回调函数。回调在锁外执行。
func (sm *StateMachine) SetOnChange(fn func(from, to State)) {
	sm.mu.Lock()
	sm.onChange = fn
	sm.mu.Unlock()
}

// Current 返回当前状态。
func (sm *StateMachine) Current() State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.current
}

// Transition 尝试切换状态。只有合法的转换才会生效：
//
//	Idle    → Playing  （开始播放）
//	Playing → Paused   （暂停）
//	Paused  → Playing  （继续）
//
// 任何状态都可以转换到 Idle（停止、播放结束或出错），Idle → Idle 视为无操作。
func (sm *StateMachine) Transition(to State) bool {
	sm.mu.Lock()
	if !validTransition(sm.current, to) {
		from := sm.current
		sm.mu.Unlock()
		logger.Debugf("[state] 非法转换 %s → %s", from, to)
		return false
	}

	from := sm.current
	sm.current = to
	fn := sm.onChange
	sm.mu.Unlock()

	if from == to {
		return true
	}
	logger.Debugf("[state] %s → %s", from, to)
	if fn != nil {
		fn(from, to)
	}
	return true
}

// ForceIdle 无条件重置状态为 Idle。
func (sm *StateMachine) ForceIdle() {
	sm.Transition(StateIdle)
}

// validTransition 检查状态转换是否合法。
func validTransition(from, to State) bool {
	if to == StateIdle {
		return true
	}
	switch from {
	case StateIdle:
		return to == StatePlaying
	case StatePlaying:
		return to == StatePaused
	case StatePaused:
		return to == StatePlaying
	}
	return false
}
