package locks

import (
	"context"
	"reflect"

	"github.com/ceyewan/locks/xerrors"
)

// DefaultLockerAttr Guard 在接收者上查找 Locker 的默认字段/方法名
const DefaultLockerAttr = "Locker"

// Guard 声明式加锁：按参数渲染资源名，从接收者上取 Locker，
// 在锁内执行业务函数。
//
//	type OrderService struct {
//	    Locker locks.Locker
//	}
//
//	var guard = locks.Locking("order_{id}", locks.WithTimeout(time.Second))
//
//	func (s *OrderService) Pay(ctx context.Context, id int64) error {
//	    return guard.Run(ctx, s, map[string]any{"id": id}, func(ctx context.Context) error {
//	        return s.pay(ctx, id)
//	    })
//	}
type Guard struct {
	template string
	attr     string
	opts     []LockOption
}

// Locking 创建 Guard，opts 作为每次加锁的选项
func Locking(template string, opts ...LockOption) *Guard {
	return &Guard{
		template: template,
		attr:     DefaultLockerAttr,
		opts:     opts,
	}
}

// Attr 返回一个从 name 字段/方法取 Locker 的 Guard 副本
func (g *Guard) Attr(name string) *Guard {
	cp := *g
	cp.attr = name
	return &cp
}

// Resource 渲染资源名
func (g *Guard) Resource(args map[string]any) (string, error) {
	return FormatResource(g.template, args)
}

// Run 在锁内执行 fn。ResourceIsLocked 与 fn 的错误原样返回。
func (g *Guard) Run(ctx context.Context, owner any, args map[string]any, fn func(ctx context.Context) error) error {
	resource, err := g.Resource(args)
	if err != nil {
		return err
	}
	locker, err := LockerOf(owner, g.attr)
	if err != nil {
		return err
	}
	return WithLock(ctx, locker.NewLock(resource, g.opts...), fn)
}

// Decorate 把 fn 包装成在锁内执行的同签名函数
//
//	pay := locks.Decorate(locks.Locking("order_{id}"), func(ctx context.Context, s *OrderService, args map[string]any) error {
//	    return s.pay(ctx, args["id"].(int64))
//	})
//	err := pay(ctx, svc, map[string]any{"id": int64(42)})
func Decorate[O any](g *Guard, fn func(ctx context.Context, owner O, args map[string]any) error) func(ctx context.Context, owner O, args map[string]any) error {
	return func(ctx context.Context, owner O, args map[string]any) error {
		return g.Run(ctx, owner, args, func(ctx context.Context) error {
			return fn(ctx, owner, args)
		})
	}
}

var lockerType = reflect.TypeOf((*Locker)(nil)).Elem()

// LockerOf 在 owner 上按名字查找 Locker：
// 先找无参、单返回值的导出方法，再找导出字段（指针会被解引用）。
// 找不到、类型不符或值为 nil 时返回 ErrAttributeNotFound。
func LockerOf(owner any, attr string) (Locker, error) {
	if owner == nil {
		return nil, xerrors.Wrapf(ErrAttributeNotFound, "%s on nil owner", attr)
	}

	v := reflect.ValueOf(owner)
	if v.Kind() == reflect.Pointer && v.IsNil() {
		return nil, xerrors.Wrapf(ErrAttributeNotFound, "%s on nil %T", attr, owner)
	}
	if m := v.MethodByName(attr); m.IsValid() {
		t := m.Type()
		if t.NumIn() == 0 && t.NumOut() == 1 && t.Out(0).Implements(lockerType) {
			if l, ok := m.Call(nil)[0].Interface().(Locker); ok && l != nil {
				return l, nil
			}
		}
		return nil, xerrors.Wrapf(ErrAttributeNotFound, "%T.%s() does not return a Locker", owner, attr)
	}

	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, xerrors.Wrapf(ErrAttributeNotFound, "%s on nil %T", attr, owner)
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, xerrors.Wrapf(ErrAttributeNotFound, "%T has no field %s", owner, attr)
	}

	f := v.FieldByName(attr)
	if !f.IsValid() || !f.CanInterface() {
		return nil, xerrors.Wrapf(ErrAttributeNotFound, "%T has no exported field %s", owner, attr)
	}
	if l, ok := f.Interface().(Locker); ok && l != nil && !isNilValue(f) {
		return l, nil
	}
	return nil, xerrors.Wrapf(ErrAttributeNotFound, "%T.%s is not a non-nil Locker", owner, attr)
}

func isNilValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}
