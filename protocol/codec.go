package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"

	"github.com/vmihailenco/msgpack/v5"
)

var (
	// ErrDecode 任何解码失败都包装此错误；对连接来说是致命的
	ErrDecode = errors.New("protocol: decode failure")
	// ErrUnknownTag 未知的消息标签（同时包装 ErrDecode）
	ErrUnknownTag = fmt.Errorf("%w: unknown tag", ErrDecode)
)

// 编码格式：1 字节标签 + msgpack 数组形式的消息体（字段按位置固定）

func EncodeInput(in PlayerInput) ([]byte, error) {
	return encodeTagged(tagInput, in)
}

func DecodeInput(payload []byte) (PlayerInput, error) {
	var in PlayerInput
	tag, body, err := splitTag(payload)
	if err != nil {
		return in, err
	}
	if tag != tagInput {
		return in, fmt.Errorf("%w 0x%02x on input channel", ErrUnknownTag, tag)
	}
	err = decodeBody(body, &in)
	return in, err
}

func EncodeCommand(cmd Command) ([]byte, error) {
	if cmd == nil {
		return nil, errors.New("protocol: nil command")
	}
	return encodeTagged(cmd.commandTag(), cmd)
}

func DecodeCommand(payload []byte) (Command, error) {
	tag, body, err := splitTag(payload)
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagBasicAttack:
		var m BasicAttack
		if err := decodeBody(body, &m); err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w 0x%02x on command channel", ErrUnknownTag, tag)
	}
}

func EncodeServerMessage(msg ServerMessage) ([]byte, error) {
	if msg == nil {
		return nil, errors.New("protocol: nil server message")
	}
	return encodeTagged(msg.serverTag(), msg)
}

func DecodeServerMessage(payload []byte) (ServerMessage, error) {
	tag, body, err := splitTag(payload)
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagPlayerCreate:
		var m PlayerCreate
		err := decodeBody(body, &m)
		return m, err
	case tagPlayerDisconnected:
		var m PlayerDisconnected
		err := decodeBody(body, &m)
		return m, err
	case tagSpawnProjectile:
		var m SpawnProjectile
		err := decodeBody(body, &m)
		return m, err
	case tagDespawnProjectile:
		var m DespawnProjectile
		err := decodeBody(body, &m)
		return m, err
	case tagDespawnPlayer:
		var m DespawnPlayer
		err := decodeBody(body, &m)
		return m, err
	case tagRespawnPlayer:
		var m RespawnPlayer
		err := decodeBody(body, &m)
		return m, err
	default:
		return nil, fmt.Errorf("%w 0x%02x on server message channel", ErrUnknownTag, tag)
	}
}

func EncodeNetworkedEntities(n NetworkedEntities) ([]byte, error) {
	if len(n.Entities) != len(n.Transforms) {
		return nil, fmt.Errorf("protocol: snapshot has %d entities but %d transforms", len(n.Entities), len(n.Transforms))
	}
	return encodeTagged(tagNetworkedEntities, n)
}

func DecodeNetworkedEntities(payload []byte) (NetworkedEntities, error) {
	var n NetworkedEntities
	tag, body, err := splitTag(payload)
	if err != nil {
		return n, err
	}
	if tag != tagNetworkedEntities {
		return n, fmt.Errorf("%w 0x%02x on networked entities channel", ErrUnknownTag, tag)
	}
	if err := decodeBody(body, &n); err != nil {
		return n, err
	}
	if len(n.Entities) != len(n.Transforms) {
		return NetworkedEntities{}, fmt.Errorf("%w: snapshot has %d entities but %d transforms", ErrDecode, len(n.Entities), len(n.Transforms))
	}
	return n, nil
}

func encodeTagged(tag uint8, body any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(tag)
	if err := msgpack.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("protocol: encode tag 0x%02x: %w", tag, err)
	}
	return buf.Bytes(), nil
}

func splitTag(payload []byte) (uint8, []byte, error) {
	if len(payload) == 0 {
		return 0, nil, fmt.Errorf("%w: empty payload", ErrDecode)
	}
	return payload[0], payload[1:], nil
}

// decodeBody 先核对编码形状，再解码；要求消息体被完整消费，多余字节视为解码失败
func decodeBody(body []byte, v any) error {
	if err := checkShape(msgpack.NewDecoder(bytes.NewReader(body)), reflect.TypeOf(v).Elem()); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	r := bytes.NewReader(body)
	if err := msgpack.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if r.Len() != 0 {
		return fmt.Errorf("%w: %d trailing bytes", ErrDecode, r.Len())
	}
	return nil
}
