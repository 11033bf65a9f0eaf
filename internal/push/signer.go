package push

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Signer 事件签名器，HMAC-SHA256(secret, "timestamp\n" + body)
type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign 生成签名（hex 小写）
func (s *Signer) Sign(ts int64, body []byte) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%d\n", ts)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify 校验签名，常量时间比较
func (s *Signer) Verify(ts int64, body []byte, sig string) bool {
	return hmac.Equal([]byte(s.Sign(ts, body)), []byte(sig))
}
