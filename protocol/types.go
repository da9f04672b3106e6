package protocol

import "math"

// ProtocolID 握手时校验的协议编号，客户端与服务端必须一致
const ProtocolID uint32 = 7

// ClientID 连接会话标识，由传输层握手时分配，会话期间稳定
type ClientID uint64

// ServerEntityID 服务端分配的实体标识，会话内唯一且不复用
// 与客户端本地实体句柄是两个独立的类型，只能经由映射表转换
type ServerEntityID uint64

// Vec2 二维向量（屏幕坐标系：x 向右，y 向下）
type Vec2 struct {
	_msgpack struct{} `msgpack:",as_array"`
	X        float32
	Y        float32
}

// V 构造 Vec2
func V(x, y float32) Vec2 { return Vec2{X: x, Y: y} }

func (v Vec2) Add(o Vec2) Vec2      { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2      { return Vec2{X: v.X - o.X, Y: v.Y - o.Y} }
func (v Vec2) Scale(s float32) Vec2 { return Vec2{X: v.X * s, Y: v.Y * s} }

// IsFinite 两个分量都不是 NaN/Inf
func (v Vec2) IsFinite() bool {
	return !math.IsNaN(float64(v.X)) && !math.IsInf(float64(v.X), 0) &&
		!math.IsNaN(float64(v.Y)) && !math.IsInf(float64(v.Y), 0)
}

// Transform 实体的位置与朝向（弧度，0 指向 +x）
type Transform struct {
	_msgpack struct{} `msgpack:",as_array"`
	Position Vec2
	Rotation float32
}

// Forward 由朝向得到的单位方向向量
func (t Transform) Forward() Vec2 {
	r := float64(t.Rotation)
	return Vec2{X: float32(math.Cos(r)), Y: float32(math.Sin(r))}
}

// PlayerInput 客户端每个 Tick 产生一次的输入，服务端是唯一解释者
type PlayerInput struct {
	_msgpack struct{} `msgpack:",as_array"`
	Up       bool
	Down     bool
	Left     bool
	Right    bool
	AimPoint Vec2
}

// Axis 返回方向键合成的轴向增量，每个分量取值 {-1,0,1}
func (in PlayerInput) Axis() Vec2 {
	return Vec2{X: boolAxis(in.Right) - boolAxis(in.Left), Y: boolAxis(in.Down) - boolAxis(in.Up)}
}

func boolAxis(b bool) float32 {
	if b {
		return 1
	}
	return 0
}
