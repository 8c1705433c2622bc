package attrs

import (
	"sync"
)

var (
	registry sync.Map
)

// New
// 创建一个类型化的属性键。
//
// 键以进程为界全局唯一，名字重复会 panic。身份即指针，映射以身份为键。
func New[T any](name string) (key *Key[T]) {
	if name == "" {
		panic("attrs: key name is empty")
	}
	key = &Key[T]{name: name}
	if _, loaded := registry.LoadOrStore(name, key); loaded {
		panic("attrs: key already exists: " + name)
	}
	return
}

// Exists
// 判断键名是否已注册。
func Exists(name string) (ok bool) {
	_, ok = registry.Load(name)
	return
}

type Key[T any] struct {
	name string
}

func (key *Key[T]) Name() (name string) {
	name = key.name
	return
}

// Map
// 键到单元的映射。单元在首次访问时惰性创建，创建对并发查找是原子的。
//
// 零值可用。
type Map struct {
	cells sync.Map
}

// Has
// 判断键是否已有单元，不触发创建。
func (m *Map) Has(key any) (ok bool) {
	_, ok = m.cells.Load(key)
	return
}

// Of
// 取键对应的单元，不存在则创建。
func Of[T any](m *Map, key *Key[T]) (attr *Attribute[T]) {
	if cell, has := m.cells.Load(key); has {
		attr = cell.(*Attribute[T])
		return
	}
	cell, _ := m.cells.LoadOrStore(key, &Attribute[T]{})
	attr = cell.(*Attribute[T])
	return
}

// Attribute
// 属性单元。各单元独立地并发安全。
//
// CompareAndSwap 以 any 相等比较，T 必须可比较。
type Attribute[T any] struct {
	locker sync.Mutex
	has    bool
	value  T
}

func (attr *Attribute[T]) Get() (value T, has bool) {
	attr.locker.Lock()
	value, has = attr.value, attr.has
	attr.locker.Unlock()
	return
}

func (attr *Attribute[T]) Set(value T) {
	attr.locker.Lock()
	attr.value, attr.has = value, true
	attr.locker.Unlock()
}

// Swap
// 设置并返回旧值。
func (attr *Attribute[T]) Swap(value T) (old T, had bool) {
	attr.locker.Lock()
	old, had = attr.value, attr.has
	attr.value, attr.has = value, true
	attr.locker.Unlock()
	return
}

func (attr *Attribute[T]) CompareAndSwap(old T, value T) (ok bool) {
	attr.locker.Lock()
	current := attr.value
	if any(current) == any(old) {
		attr.value, attr.has = value, true
		ok = true
	}
	attr.locker.Unlock()
	return
}

// SetIfAbsent
// 不存在时设置，返回生效的值。
func (attr *Attribute[T]) SetIfAbsent(value T) (actual T, stored bool) {
	attr.locker.Lock()
	if attr.has {
		actual = attr.value
	} else {
		attr.value, attr.has = value, true
		actual = value
		stored = true
	}
	attr.locker.Unlock()
	return
}
