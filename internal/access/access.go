// Package access решает, какие задачи пользователь может видеть и менять.
//
// Списки фильтруются через Scope из ScopeForRead, запись и чтение одной задачи
// проверяются AuthorizeMutation. Обе функции работают с уже загруженными данными.
package access

import "taskManager/internal/models/task"

const AdminRole = "Admin"

// Caller - аутентифицированный пользователь запроса
type Caller struct {
	ID      string
	IsAdmin bool
}

// Scope - фильтр чтения. Нулевое значение ограничено пустым владельцем и ничего не пропускает
type Scope struct {
	ownerID      string
	unrestricted bool
}

func ScopeForRead(caller Caller) Scope {
	if caller.IsAdmin {
		return Scope{unrestricted: true}
	}
	return Scope{ownerID: caller.ID}
}

func (s Scope) Unrestricted() bool {
	return s.unrestricted
}

// Owner возвращает обязательного владельца видимых задач, для администратора пустую строку
func (s Scope) Owner() string {
	if s.unrestricted {
		return ""
	}
	return s.ownerID
}

func (s Scope) Allows(t *task.Task) bool {
	if t == nil {
		return false
	}
	if s.unrestricted {
		return true
	}
	return s.ownerID != "" && t.OwnerID == s.ownerID
}

// Filter сохраняет порядок задач
func (s Scope) Filter(tasks []*task.Task) []*task.Task {
	res := make([]*task.Task, 0, len(tasks))
	for _, t := range tasks {
		if s.Allows(t) {
			res = append(res, t)
		}
	}
	return res
}

// Key - часть ключа кэша, одинаковая для равных Scope
func (s Scope) Key() string {
	if s.unrestricted {
		return "all"
	}
	return "owner:" + s.ownerID
}

// AuthorizeMutation одинаково используется для чтения по id, обновления и удаления
func AuthorizeMutation(t *task.Task, caller Caller) bool {
	if t == nil {
		return false
	}
	if caller.IsAdmin {
		return true
	}
	return caller.ID != "" && t.OwnerID == caller.ID
}
