package editor

import (
	"fmt"

	"ai-portfolio-go/internal/constants"
	"ai-portfolio-go/internal/types"
)

// Operation 一次编辑操作。集合封闭，只能通过本包的构造函数创建
type Operation interface {
	// Section 操作修改的章节，用于按章节做写时复制
	Section() types.Section
	apply(r *types.PortfolioRecord, env *applyEnv) error
}

type applyEnv struct {
	maxImageBytes int64
}

// ---- 单例章节 ----

type setPersonalOp struct {
	field PersonalField
	value string
}

// SetPersonal 修改个人信息字段
func SetPersonal(field PersonalField, value string) Operation {
	return setPersonalOp{field: field, value: value}
}

func (o setPersonalOp) Section() types.Section { return types.SectionPersonalDetails }

func (o setPersonalOp) apply(r *types.PortfolioRecord, _ *applyEnv) error {
	acc, ok := personalFields[o.field]
	if !ok {
		return unknownField(types.SectionPersonalDetails, string(o.field))
	}
	*acc(&r.PersonalDetails) = o.value
	return nil
}

type setSEOOp struct {
	field SEOField
	value string
}

// SetSEO 修改 SEO 字段
func SetSEO(field SEOField, value string) Operation {
	return setSEOOp{field: field, value: value}
}

func (o setSEOOp) Section() types.Section { return types.SectionSEO }

func (o setSEOOp) apply(r *types.PortfolioRecord, _ *applyEnv) error {
	acc, ok := seoFields[o.field]
	if !ok {
		return unknownField(types.SectionSEO, string(o.field))
	}
	*acc(&r.SEO) = o.value
	return nil
}

// ---- 列表章节条目 ----

type setItemFieldOp struct {
	section types.Section
	index   int
	field   ItemField
	value   string
}

// SetItemField 修改列表章节中第 index 个条目的文本字段
func SetItemField(section types.Section, index int, field ItemField, value string) Operation {
	return setItemFieldOp{section: section, index: index, field: field, value: value}
}

func (o setItemFieldOp) Section() types.Section { return o.section }

func (o setItemFieldOp) apply(r *types.PortfolioRecord, _ *applyEnv) error {
	acc, ok := itemFields[o.section][o.field]
	if !ok {
		return unknownField(o.section, string(o.field))
	}
	if err := checkIndex(string(o.section), o.index, sectionLen(r, o.section)); err != nil {
		return err
	}
	*acc(r, o.index) = o.value
	return nil
}

type setSkillLevelOp struct {
	index int
	level int
}

// SetSkillLevel 修改技能等级，超出 [0,100] 时拒绝
func SetSkillLevel(index, level int) Operation {
	return setSkillLevelOp{index: index, level: level}
}

func (o setSkillLevelOp) Section() types.Section { return types.SectionSkills }

func (o setSkillLevelOp) apply(r *types.PortfolioRecord, _ *applyEnv) error {
	if err := checkIndex(string(types.SectionSkills), o.index, len(r.Skills)); err != nil {
		return err
	}
	if o.level < constants.MinSkillLevel || o.level > constants.MaxSkillLevel {
		return types.NewValidationError(fmt.Sprintf("skills[%d].level", o.index),
			fmt.Sprintf("skill level must be between %d and %d", constants.MinSkillLevel, constants.MaxSkillLevel))
	}
	r.Skills[o.index].Level = o.level
	return nil
}

// ---- 条目内嵌列表 ----

type nestedOp struct {
	list  NestedList
	index int
	sub   int
	value string
	kind  nestedKind
}

type nestedKind int

const (
	nestedSet nestedKind = iota
	nestedAppend
	nestedRemove
)

// SetNestedElement 修改条目内嵌列表的第 sub 个元素
func SetNestedElement(list NestedList, index, sub int, value string) Operation {
	return nestedOp{list: list, index: index, sub: sub, value: value, kind: nestedSet}
}

// AppendNestedElement 在条目内嵌列表末尾追加空串
func AppendNestedElement(list NestedList, index int) Operation {
	return nestedOp{list: list, index: index, kind: nestedAppend}
}

// RemoveNestedElement 删除条目内嵌列表的第 sub 个元素
func RemoveNestedElement(list NestedList, index, sub int) Operation {
	return nestedOp{list: list, index: index, sub: sub, kind: nestedRemove}
}

func (o nestedOp) Section() types.Section {
	sec, _ := o.list.section()
	return sec
}

func (o nestedOp) apply(r *types.PortfolioRecord, _ *applyEnv) error {
	sec, ok := o.list.section()
	if !ok {
		return types.NewValidationError("list", fmt.Sprintf("unknown nested list %q", o.list))
	}
	if err := checkIndex(string(sec), o.index, sectionLen(r, sec)); err != nil {
		return err
	}
	items := o.list.nestedSlice(r, o.index)
	switch o.kind {
	case nestedAppend:
		*items = append(*items, "")
	case nestedSet:
		if err := checkIndex(string(o.list), o.sub, len(*items)); err != nil {
			return err
		}
		(*items)[o.sub] = o.value
	case nestedRemove:
		if err := checkIndex(string(o.list), o.sub, len(*items)); err != nil {
			return err
		}
		*items = removeAt(*items, o.sub)
	}
	return nil
}

// ---- 章节条目增删 ----

type appendItemOp struct {
	section types.Section
}

// AppendItem 在列表章节末尾追加默认模板条目
func AppendItem(section types.Section) Operation {
	return appendItemOp{section: section}
}

func (o appendItemOp) Section() types.Section { return o.section }

func (o appendItemOp) apply(r *types.PortfolioRecord, _ *applyEnv) error {
	switch o.section {
	case types.SectionWorkExperience:
		r.WorkExperience = append(r.WorkExperience, types.NewWorkExperience())
	case types.SectionEducation:
		r.Education = append(r.Education, types.NewEducation())
	case types.SectionSkills:
		r.Skills = append(r.Skills, types.NewSkill())
	case types.SectionProjects:
		r.Projects = append(r.Projects, types.NewProject())
	case types.SectionAchievements:
		r.Achievements = append(r.Achievements, types.NewAchievement())
	case types.SectionCertifications:
		r.Certifications = append(r.Certifications, types.NewCertification())
	default:
		return fmt.Errorf("append to %q: %w", o.section, types.ErrNotListSection)
	}
	return nil
}

type removeItemOp struct {
	section types.Section
	index   int
}

// RemoveItem 删除列表章节的第 index 个条目
func RemoveItem(section types.Section, index int) Operation {
	return removeItemOp{section: section, index: index}
}

func (o removeItemOp) Section() types.Section { return o.section }

func (o removeItemOp) apply(r *types.PortfolioRecord, _ *applyEnv) error {
	if !o.section.IsList() {
		return fmt.Errorf("remove from %q: %w", o.section, types.ErrNotListSection)
	}
	if err := checkIndex(string(o.section), o.index, sectionLen(r, o.section)); err != nil {
		return err
	}
	switch o.section {
	case types.SectionWorkExperience:
		r.WorkExperience = removeAt(r.WorkExperience, o.index)
	case types.SectionEducation:
		r.Education = removeAt(r.Education, o.index)
	case types.SectionSkills:
		r.Skills = removeAt(r.Skills, o.index)
	case types.SectionProjects:
		r.Projects = removeAt(r.Projects, o.index)
	case types.SectionAchievements:
		r.Achievements = removeAt(r.Achievements, o.index)
	case types.SectionCertifications:
		r.Certifications = removeAt(r.Certifications, o.index)
	}
	return nil
}

// removeAt 返回删除第 i 个元素后的新切片，不修改入参的底层数组
func removeAt[T any](s []T, i int) []T {
	out := make([]T, 0, len(s)-1)
	out = append(out, s[:i]...)
	return append(out, s[i+1:]...)
}

// ---- 图片 ----

type assignImageOp struct {
	target ImageTarget
	file   *ImageFile
}

// AssignImage 设置图片字段。file 为 nil 时清空
func AssignImage(target ImageTarget, file *ImageFile) Operation {
	return assignImageOp{target: target, file: file}
}

func (o assignImageOp) Section() types.Section {
	if o.target.Project {
		return types.SectionProjects
	}
	return types.SectionPersonalDetails
}

func (o assignImageOp) apply(r *types.PortfolioRecord, env *applyEnv) error {
	var field *string
	if o.target.Project {
		if err := checkIndex(string(types.SectionProjects), o.target.Index, len(r.Projects)); err != nil {
			return err
		}
		field = &r.Projects[o.target.Index].ImageURL
	} else {
		field = &r.PersonalDetails.ProfilePictureURL
	}

	if o.file == nil {
		*field = ""
		return nil
	}
	uri, err := EncodeImage(o.file, env.maxImageBytes)
	if err != nil {
		return err
	}
	*field = uri
	return nil
}
