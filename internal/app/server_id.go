package app

import (
	"fmt"
	"os"

	"github.com/google/uuid"
)

// GenerateServerID 生成网关实例ID
// 优先使用环境变量SERVER_ID，否则生成UUID
func GenerateServerID() string {
	if serverID := os.Getenv("SERVER_ID"); serverID != "" {
		return serverID
	}

	// 生成格式：gnss-gateway-{hostname}-{uuid}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	shortUUID := uuid.New().String()[:8]
	return fmt.Sprintf("gnss-gateway-%s-%s", hostname, shortUUID)
}
