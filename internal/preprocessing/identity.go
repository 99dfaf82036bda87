package preprocessing

import (
	"crypto/md5"

	"github.com/google/uuid"
)

// ChunkID 由分块文本计算内容寻址ID
// 取文本字节的MD5，写入RFC 4122版本4的版本位和变体位，
// 因此ID保留122位哈希，相同文本总是得到相同ID
func ChunkID(content string) uuid.UUID {
	sum := md5.Sum([]byte(content))
	sum[6] = (sum[6] & 0x0f) | 0x40
	sum[8] = (sum[8] & 0x3f) | 0x80
	return uuid.UUID(sum)
}
