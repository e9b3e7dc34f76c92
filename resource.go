package locks

import (
	"encoding/binary"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/ceyewan/locks/xerrors"
)

// ResourceID 把资源名映射为 64 位有符号整数，供 PostgreSQL advisory lock 使用。
//
// 取 UTF-8 字节的 BLAKE2b-512 摘要前 8 字节，按小端序解释为补码整数。
// 结果跨进程、跨语言稳定，不同资源名理论上可能碰撞，碰撞不做检测。
func ResourceID(resource string) int64 {
	sum := blake2b.Sum512([]byte(resource))
	return int64(binary.LittleEndian.Uint64(sum[:8]))
}

// FormatResource 用命名参数渲染资源名模板。
//
// 占位符写作 {name}，可带格式说明 {name:05d}（按 fmt 动词解释），
// {{ 和 }} 分别输出字面量花括号。
//
//	FormatResource("res_{id}", map[string]any{"id": 42}) // "res_42"
func FormatResource(template string, args map[string]any) (string, error) {
	var b strings.Builder
	b.Grow(len(template))

	for i := 0; i < len(template); i++ {
		c := template[i]
		switch c {
		case '{':
			if i+1 < len(template) && template[i+1] == '{' {
				b.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(template[i+1:], '}')
			if end < 0 {
				return "", xerrors.Wrapf(ErrInvalidTemplate, "unclosed '{' at %d in %q", i, template)
			}
			field := template[i+1 : i+1+end]
			s, err := formatField(field, args)
			if err != nil {
				return "", err
			}
			b.WriteString(s)
			i += end + 1
		case '}':
			if i+1 < len(template) && template[i+1] == '}' {
				b.WriteByte('}')
				i++
				continue
			}
			return "", xerrors.Wrapf(ErrInvalidTemplate, "single '}' at %d in %q", i, template)
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

func formatField(field string, args map[string]any) (string, error) {
	name, spec, _ := strings.Cut(field, ":")
	if name == "" || strings.ContainsAny(name, "{") {
		return "", xerrors.Wrapf(ErrInvalidTemplate, "bad placeholder {%s}", field)
	}
	v, ok := args[name]
	if !ok {
		return "", xerrors.Wrapf(ErrMissingArgument, "%s", name)
	}
	if spec == "" {
		return fmt.Sprint(v), nil
	}
	return fmt.Sprintf("%"+spec, v), nil
}
