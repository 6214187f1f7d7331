package editor

import (
	"fmt"

	"ai-portfolio-go/internal/types"
)

// 请求中的操作名
const (
	OpSetPersonal   = "set_personal"
	OpSetSEO        = "set_seo"
	OpSetItemField  = "set_item_field"
	OpSetSkillLevel = "set_skill_level"
	OpSetNested     = "set_nested"
	OpAppendNested  = "append_nested"
	OpRemoveNested  = "remove_nested"
	OpAppendItem    = "append_item"
	OpRemoveItem    = "remove_item"
)

// OperationRequest HTTP 层接收的编辑请求
type OperationRequest struct {
	Op       string `json:"op"`
	Section  string `json:"section,omitempty"`
	Field    string `json:"field,omitempty"`
	List     string `json:"list,omitempty"`
	Index    int    `json:"index"`
	SubIndex int    `json:"subIndex"`
	Value    string `json:"value"`
	Level    *int   `json:"level,omitempty"`
}

// DecodeOperation 将请求转换为类型化操作，未知的操作名或字段名在此处被拒绝
func DecodeOperation(req OperationRequest) (Operation, error) {
	switch req.Op {
	case OpSetPersonal:
		f := PersonalField(req.Field)
		if _, ok := personalFields[f]; !ok {
			return nil, unknownField(types.SectionPersonalDetails, req.Field)
		}
		return SetPersonal(f, req.Value), nil

	case OpSetSEO:
		f := SEOField(req.Field)
		if _, ok := seoFields[f]; !ok {
			return nil, unknownField(types.SectionSEO, req.Field)
		}
		return SetSEO(f, req.Value), nil

	case OpSetItemField:
		sec, err := types.ParseSection(req.Section)
		if err != nil {
			return nil, err
		}
		f := ItemField(req.Field)
		if _, ok := itemFields[sec][f]; !ok {
			return nil, unknownField(sec, req.Field)
		}
		return SetItemField(sec, req.Index, f, req.Value), nil

	case OpSetSkillLevel:
		if req.Level == nil {
			return nil, types.NewValidationError("level", "level is required")
		}
		return SetSkillLevel(req.Index, *req.Level), nil

	case OpSetNested, OpAppendNested, OpRemoveNested:
		list := NestedList(req.List)
		if _, ok := list.section(); !ok {
			return nil, types.NewValidationError("list", fmt.Sprintf("unknown nested list %q", req.List))
		}
		switch req.Op {
		case OpSetNested:
			return SetNestedElement(list, req.Index, req.SubIndex, req.Value), nil
		case OpAppendNested:
			return AppendNestedElement(list, req.Index), nil
		default:
			return RemoveNestedElement(list, req.Index, req.SubIndex), nil
		}

	case OpAppendItem, OpRemoveItem:
		sec, err := types.ParseSection(req.Section)
		if err != nil {
			return nil, err
		}
		if req.Op == OpAppendItem {
			return AppendItem(sec), nil
		}
		return RemoveItem(sec, req.Index), nil
	}
	return nil, types.NewValidationError("op", fmt.Sprintf("unknown operation %q", req.Op))
}
