package ubx

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Names 消息名注册表：class/id -> 可读名称
// 供日志字段与指标标签使用。启动期构建，此后只读。
type Names struct {
	m map[uint16]string
}

// DefaultNames 内置消息名（本网关会轮询或收到的消息集合）
func DefaultNames() *Names {
	return &Names{m: map[uint16]string{
		Key(ClassNav, IDNavPosLLH): "NAV-POSLLH",
		Key(ClassNav, IDNavSvInfo): "NAV-SVINFO",
		Key(ClassNav, IDNavSat):    "NAV-SAT",
		Key(ClassAck, IDAckAck):    "ACK-ACK",
		Key(ClassAck, IDAckNak):    "ACK-NAK",
	}}
}

// namesFile names.yaml 的文件结构，键为十六进制 "class-id"，如 "01-02"
type namesFile struct {
	Map map[string]string `yaml:"map"`
}

// LoadNames 从 YAML 文件加载消息名，在默认表之上覆盖/追加
func LoadNames(path string) (*Names, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read message names: %w", err)
	}
	var f namesFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("unmarshal message names: %w", err)
	}
	n := DefaultNames()
	for k, v := range f.Map {
		key, err := parseNameKey(k)
		if err != nil {
			return nil, err
		}
		n.m[key] = v
	}
	return n, nil
}

// parseNameKey 解析 "01-02" 形式的 class-id 键
func parseNameKey(s string) (uint16, error) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("bad message key %q", s)
	}
	class, err := strconv.ParseUint(parts[0], 16, 8)
	if err != nil {
		return 0, fmt.Errorf("bad message key %q: %w", s, err)
	}
	id, err := strconv.ParseUint(parts[1], 16, 8)
	if err != nil {
		return 0, fmt.Errorf("bad message key %q: %w", s, err)
	}
	return Key(byte(class), byte(id)), nil
}

// Name 返回消息名；未知消息格式化为 UNKNOWN-xx-xx
func (n *Names) Name(class, id byte) string {
	if n != nil {
		if v, ok := n.m[Key(class, id)]; ok {
			return v
		}
	}
	return fmt.Sprintf("UNKNOWN-%02X-%02X", class, id)
}
