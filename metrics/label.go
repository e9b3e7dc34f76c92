package metrics

// Label 指标标签。标签值应保持低基数，锁的资源名不要作为标签。
type Label struct {
	Key   string
	Value string
}

// L 创建一个 Label
func L(key, value string) Label {
	return Label{Key: key, Value: value}
}
