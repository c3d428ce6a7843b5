package repo

import (
	"fmt"

	"certhub/pkg/goutil"
)

type Pagination struct {
	Page    *uint32 `json:"page,omitempty"`
	Limit   *uint32 `json:"limit,omitempty"`
	HasNext *bool   `json:"has_next,omitempty"`
	Total   *int64  `json:"total,omitempty"`
}

func (p *Pagination) GetPage() uint32 {
	if p != nil && p.Page != nil {
		return *p.Page
	}
	return 0
}

func (p *Pagination) GetLimit() uint32 {
	if p != nil && p.Limit != nil {
		return *p.Limit
	}
	return 10
}

func (p *Pagination) GetHasNext() bool {
	if p != nil && p.HasNext != nil {
		return *p.HasNext
	}
	return false
}

func (p *Pagination) GetTotal() int64 {
	if p != nil && p.Total != nil {
		return *p.Total
	}
	return 0
}

type LogicalOp string

const (
	LogicalOpAnd LogicalOp = "AND"
	LogicalOpOr  LogicalOp = "OR"
)

type Op string

const (
	OpEq     Op = "="
	OpNotEq  Op = "!="
	OpGt     Op = ">"
	OpGte    Op = ">="
	OpLt     Op = "<"
	OpLte    Op = "<="
	OpLike   Op = "LIKE"
	OpIn     Op = "IN"
	OpIsNull Op = "IS NULL"
)

type Condition struct {
	Field         string
	Op            Op
	Value         interface{}
	NextLogicalOp LogicalOp
}

type Filter struct {
	Conditions []*Condition
	Pagination *Pagination
	Order      string
}

func ToSqlWithArgs(conditions []*Condition) (sql string, args []interface{}) {
	for i, condition := range conditions {
		if condition.Op == OpIsNull {
			sql += fmt.Sprintf("%s IS NULL", condition.Field)
		} else {
			if goutil.IsNil(condition.Value) {
				continue
			}
			sql += fmt.Sprintf("%s %s ?", condition.Field, condition.Op)
			args = append(args, condition.Value)
		}

		if len(conditions) > 1 && i != len(conditions)-1 {
			logicalOp := condition.NextLogicalOp
			if logicalOp == "" {
				logicalOp = LogicalOpAnd
			}
			sql += fmt.Sprintf(" %s ", logicalOp)
		}
	}

	return
}
