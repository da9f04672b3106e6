package protocol

// 消息标签：全局唯一，解码器只接受本通道允许的标签
const (
	tagInput uint8 = 0x01

	tagBasicAttack uint8 = 0x10

	tagPlayerCreate       uint8 = 0x20
	tagPlayerDisconnected uint8 = 0x21
	tagSpawnProjectile    uint8 = 0x22
	tagDespawnProjectile  uint8 = 0x23
	tagDespawnPlayer      uint8 = 0x24
	tagRespawnPlayer      uint8 = 0x25

	tagNetworkedEntities uint8 = 0x30
)

// Command 客户端指令（Command 通道），封闭的和类型
type Command interface {
	commandTag() uint8
}

// BasicAttack 普通攻击：朝瞄准点发射一枚投射物
type BasicAttack struct {
	_msgpack struct{} `msgpack:",as_array"`
	AimPoint Vec2
}

func (BasicAttack) commandTag() uint8 { return tagBasicAttack }

// ServerMessage 服务端结构性事件（ServerMessages 可靠通道），封闭的和类型
type ServerMessage interface {
	serverTag() uint8
}

// PlayerCreate 玩家加入（对新连接回放已有玩家，也对全体广播新玩家）
type PlayerCreate struct {
	_msgpack struct{} `msgpack:",as_array"`
	ID       ClientID
	Entity   ServerEntityID
}

// PlayerDisconnected 玩家断开
type PlayerDisconnected struct {
	_msgpack struct{} `msgpack:",as_array"`
	ID       ClientID
}

// SpawnProjectile 生成投射物，朝向在生成后不再改变
type SpawnProjectile struct {
	_msgpack struct{} `msgpack:",as_array"`
	Entity   ServerEntityID
	Position Vec2
	Rotation float32
}

// DespawnProjectile 投射物销毁（到期或命中）
type DespawnProjectile struct {
	_msgpack struct{} `msgpack:",as_array"`
	Entity   ServerEntityID
}

// DespawnPlayer 玩家被击中
type DespawnPlayer struct {
	_msgpack struct{} `msgpack:",as_array"`
	Entity   ServerEntityID
}

// RespawnPlayer 玩家重生（服务端目前不会发出）
type RespawnPlayer struct {
	_msgpack struct{} `msgpack:",as_array"`
	Entity   ServerEntityID
}

func (PlayerCreate) serverTag() uint8       { return tagPlayerCreate }
func (PlayerDisconnected) serverTag() uint8 { return tagPlayerDisconnected }
func (SpawnProjectile) serverTag() uint8    { return tagSpawnProjectile }
func (DespawnProjectile) serverTag() uint8  { return tagDespawnProjectile }
func (DespawnPlayer) serverTag() uint8      { return tagDespawnPlayer }
func (RespawnPlayer) serverTag() uint8      { return tagRespawnPlayer }

// NetworkedEntities 一次位置快照：并行数组 (实体, 变换)
// Tick 为服务端 Tick 序号，客户端据此丢弃过期快照
type NetworkedEntities struct {
	_msgpack   struct{} `msgpack:",as_array"`
	Tick       uint64
	Entities   []ServerEntityID
	Transforms []Transform
}

// Append 追加一个实体的变换
func (n *NetworkedEntities) Append(id ServerEntityID, t Transform) {
	n.Entities = append(n.Entities, id)
	n.Transforms = append(n.Transforms, t)
}

// Len 快照中的实体数量
func (n NetworkedEntities) Len() int { return len(n.Entities) }
