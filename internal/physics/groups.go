package physics

import "slices"

// Group группа столкновений
type Group string

const (
	GroupPlayer     Group = "player"
	GroupEnemy      Group = "enemy"
	GroupNPC        Group = "npc"
	GroupItem       Group = "item"
	GroupProjectile Group = "projectile"
	GroupTrigger    Group = "trigger"
	GroupSolid      Group = "solid"
)

// AllGroups возвращает все известные группы в фиксированном порядке
func AllGroups() []Group {
	return []Group{GroupPlayer, GroupEnemy, GroupNPC, GroupItem, GroupProjectile, GroupTrigger, GroupSolid}
}

// CollisionCallback вызывается для каждого участника пары (self, other).
// Колбэк может менять оба тела, но обязан проверять Active перед действием.
type CollisionCallback func(self, other Object, info Collision) error

// GroupRule описывает, с кем сталкивается группа, и её обработчик
type GroupRule struct {
	CollidesWith []Group
	Callback     CollisionCallback
}

// GroupTable статическая таблица совместимости групп
type GroupTable map[Group]*GroupRule

// DefaultGroupTable возвращает таблицу совместимости без обработчиков
func DefaultGroupTable() GroupTable {
	return GroupTable{
		GroupPlayer:     {CollidesWith: []Group{GroupSolid, GroupItem, GroupNPC, GroupEnemy, GroupTrigger}},
		GroupEnemy:      {CollidesWith: []Group{GroupSolid, GroupPlayer, GroupNPC}},
		GroupNPC:        {CollidesWith: []Group{GroupSolid, GroupPlayer}},
		GroupItem:       {CollidesWith: []Group{GroupPlayer}},
		GroupProjectile: {CollidesWith: []Group{GroupSolid, GroupPlayer, GroupEnemy, GroupNPC}},
		GroupTrigger:    {CollidesWith: []Group{GroupPlayer}},
		GroupSolid:      {CollidesWith: []Group{GroupPlayer, GroupEnemy, GroupNPC, GroupProjectile}},
	}
}

// Declares проверяет, объявила ли группа a столкновение с b
func (t GroupTable) Declares(a, b Group) bool {
	rule, ok := t[a]
	if !ok || rule == nil {
		return false
	}
	return slices.Contains(rule.CollidesWith, b)
}

// Compatible проверяет совместимость пары симметрично:
// пара сталкивается, если хотя бы одна из сторон её объявила.
func (t GroupTable) Compatible(a, b Group) bool {
	return t.Declares(a, b) || t.Declares(b, a)
}

// SetCallback назначает обработчик группе, создавая правило при необходимости
func (t GroupTable) SetCallback(g Group, cb CollisionCallback) {
	rule, ok := t[g]
	if !ok || rule == nil {
		rule = &GroupRule{}
		t[g] = rule
	}
	rule.Callback = cb
}

// Callback возвращает обработчик группы (может быть nil)
func (t GroupTable) Callback(g Group) CollisionCallback {
	if rule, ok := t[g]; ok && rule != nil {
		return rule.Callback
	}
	return nil
}
