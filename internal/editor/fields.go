package editor

import (
	"fmt"

	"ai-portfolio-go/internal/types"
)

// PersonalField 个人信息中可直接编辑的文本字段
type PersonalField string

const (
	PersonalName       PersonalField = "name"
	PersonalTitle      PersonalField = "title"
	PersonalEmail      PersonalField = "email"
	PersonalPhone      PersonalField = "phone"
	PersonalLinkedIn   PersonalField = "linkedin"
	PersonalGitHub     PersonalField = "github"
	PersonalLeetCode   PersonalField = "leetcode"
	PersonalHackerRank PersonalField = "hackerrank"
	PersonalSummary    PersonalField = "summary"
	PersonalResumeURL  PersonalField = "resumeUrl"
)

// profilePictureUrl 只能通过 AssignImage 修改
var personalFields = map[PersonalField]func(*types.PersonalDetails) *string{
	PersonalName:       func(p *types.PersonalDetails) *string { return &p.Name },
	PersonalTitle:      func(p *types.PersonalDetails) *string { return &p.Title },
	PersonalEmail:      func(p *types.PersonalDetails) *string { return &p.Email },
	PersonalPhone:      func(p *types.PersonalDetails) *string { return &p.Phone },
	PersonalLinkedIn:   func(p *types.PersonalDetails) *string { return &p.LinkedIn },
	PersonalGitHub:     func(p *types.PersonalDetails) *string { return &p.GitHub },
	PersonalLeetCode:   func(p *types.PersonalDetails) *string { return &p.LeetCode },
	PersonalHackerRank: func(p *types.PersonalDetails) *string { return &p.HackerRank },
	PersonalSummary:    func(p *types.PersonalDetails) *string { return &p.Summary },
	PersonalResumeURL:  func(p *types.PersonalDetails) *string { return &p.ResumeURL },
}

// SEOField SEO 文本字段
type SEOField string

const (
	SEOTitle       SEOField = "title"
	SEODescription SEOField = "description"
)

var seoFields = map[SEOField]func(*types.SEO) *string{
	SEOTitle:       func(s *types.SEO) *string { return &s.Title },
	SEODescription: func(s *types.SEO) *string { return &s.Description },
}

// ItemField 列表章节条目中的文本字段，合法性取决于所在章节
type ItemField string

const (
	FieldCompany             ItemField = "company"
	FieldJobTitle            ItemField = "jobTitle"
	FieldStartDate           ItemField = "startDate"
	FieldEndDate             ItemField = "endDate"
	FieldInstitution         ItemField = "institution"
	FieldDegree              ItemField = "degree"
	FieldFieldOfStudy        ItemField = "fieldOfStudy"
	FieldDescription         ItemField = "description"
	FieldCategory            ItemField = "category"
	FieldName                ItemField = "name"
	FieldLink                ItemField = "link"
	FieldTitle               ItemField = "title"
	FieldIssuingOrganization ItemField = "issuingOrganization"
	FieldDate                ItemField = "date"
	FieldCredentialURL       ItemField = "credentialUrl"
)

// itemAccessor 返回记录中第 i 个条目某字段的指针，调用前须已检查下标
type itemAccessor func(r *types.PortfolioRecord, i int) *string

var itemFields = map[types.Section]map[ItemField]itemAccessor{
	types.SectionWorkExperience: {
		FieldCompany:   func(r *types.PortfolioRecord, i int) *string { return &r.WorkExperience[i].Company },
		FieldJobTitle:  func(r *types.PortfolioRecord, i int) *string { return &r.WorkExperience[i].JobTitle },
		FieldStartDate: func(r *types.PortfolioRecord, i int) *string { return &r.WorkExperience[i].StartDate },
		FieldEndDate:   func(r *types.PortfolioRecord, i int) *string { return &r.WorkExperience[i].EndDate },
	},
	types.SectionEducation: {
		FieldInstitution:  func(r *types.PortfolioRecord, i int) *string { return &r.Education[i].Institution },
		FieldDegree:       func(r *types.PortfolioRecord, i int) *string { return &r.Education[i].Degree },
		FieldFieldOfStudy: func(r *types.PortfolioRecord, i int) *string { return &r.Education[i].FieldOfStudy },
		FieldStartDate:    func(r *types.PortfolioRecord, i int) *string { return &r.Education[i].StartDate },
		FieldEndDate:      func(r *types.PortfolioRecord, i int) *string { return &r.Education[i].EndDate },
		FieldDescription:  func(r *types.PortfolioRecord, i int) *string { return &r.Education[i].Description },
	},
	types.SectionSkills: {
		FieldCategory: func(r *types.PortfolioRecord, i int) *string { return &r.Skills[i].Category },
		FieldName:     func(r *types.PortfolioRecord, i int) *string { return &r.Skills[i].Name },
	},
	types.SectionProjects: {
		FieldName:        func(r *types.PortfolioRecord, i int) *string { return &r.Projects[i].Name },
		FieldDescription: func(r *types.PortfolioRecord, i int) *string { return &r.Projects[i].Description },
		FieldLink:        func(r *types.PortfolioRecord, i int) *string { return &r.Projects[i].Link },
	},
	types.SectionAchievements: {
		FieldTitle:       func(r *types.PortfolioRecord, i int) *string { return &r.Achievements[i].Title },
		FieldDescription: func(r *types.PortfolioRecord, i int) *string { return &r.Achievements[i].Description },
	},
	types.SectionCertifications: {
		FieldName:                func(r *types.PortfolioRecord, i int) *string { return &r.Certifications[i].Name },
		FieldIssuingOrganization: func(r *types.PortfolioRecord, i int) *string { return &r.Certifications[i].IssuingOrganization },
		FieldDate:                func(r *types.PortfolioRecord, i int) *string { return &r.Certifications[i].Date },
		FieldCredentialURL:       func(r *types.PortfolioRecord, i int) *string { return &r.Certifications[i].CredentialURL },
	},
}

// NestedList 条目内部的字符串列表
type NestedList string

const (
	// NestedResponsibilities 工作经历的职责列表
	NestedResponsibilities NestedList = "responsibilities"
	// NestedTechnologies 项目的技术栈列表
	NestedTechnologies NestedList = "technologies"
)

func (n NestedList) section() (types.Section, bool) {
	switch n {
	case NestedResponsibilities:
		return types.SectionWorkExperience, true
	case NestedTechnologies:
		return types.SectionProjects, true
	}
	return "", false
}

// nestedSlice 返回第 i 个条目内嵌列表的指针，调用前须已检查下标
func (n NestedList) nestedSlice(r *types.PortfolioRecord, i int) *[]string {
	if n == NestedResponsibilities {
		return &r.WorkExperience[i].Responsibilities
	}
	return &r.Projects[i].Technologies
}

func sectionLen(r *types.PortfolioRecord, sec types.Section) int {
	switch sec {
	case types.SectionWorkExperience:
		return len(r.WorkExperience)
	case types.SectionEducation:
		return len(r.Education)
	case types.SectionSkills:
		return len(r.Skills)
	case types.SectionProjects:
		return len(r.Projects)
	case types.SectionAchievements:
		return len(r.Achievements)
	case types.SectionCertifications:
		return len(r.Certifications)
	}
	return 0
}

func checkIndex(what string, index, length int) error {
	if index < 0 || index >= length {
		return fmt.Errorf("%s[%d] (len %d): %w", what, index, length, types.ErrIndexOutOfRange)
	}
	return nil
}

func unknownField(section types.Section, field string) error {
	return types.NewValidationError(string(section)+"."+field,
		fmt.Sprintf("field %q is not editable in section %q", field, section))
}
