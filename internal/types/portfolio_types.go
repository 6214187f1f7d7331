package types

import (
	"fmt"
	"strings"

	"ai-portfolio-go/internal/constants"
)

// Section 表示作品集数据的顶层章节
type Section string

const (
	// SectionPersonalDetails 个人信息（单例）
	SectionPersonalDetails Section = "personalDetails"
	// SectionWorkExperience 工作经历
	SectionWorkExperience Section = "workExperience"
	// SectionEducation 教育经历
	SectionEducation Section = "education"
	// SectionSkills 技能
	SectionSkills Section = "skills"
	// SectionProjects 项目
	SectionProjects Section = "projects"
	// SectionAchievements 成就
	SectionAchievements Section = "achievements"
	// SectionCertifications 证书
	SectionCertifications Section = "certifications"
	// SectionSEO 搜索引擎元信息（单例）
	SectionSEO Section = "seo"
)

// AllSections 管理端展示顺序
var AllSections = []Section{
	SectionPersonalDetails,
	SectionWorkExperience,
	SectionEducation,
	SectionSkills,
	SectionProjects,
	SectionCertifications,
	SectionAchievements,
	SectionSEO,
}

// ParseSection 将字符串解析为章节，未知章节返回校验错误
func ParseSection(s string) (Section, error) {
	for _, sec := range AllSections {
		if string(sec) == s {
			return sec, nil
		}
	}
	return "", NewValidationError("section", fmt.Sprintf("unknown section %q", s))
}

// IsList 章节是否为列表类型
func (s Section) IsList() bool {
	switch s {
	case SectionWorkExperience, SectionEducation, SectionSkills, SectionProjects,
		SectionAchievements, SectionCertifications:
		return true
	}
	return false
}

// PersonalDetails 个人信息
type PersonalDetails struct {
	Name              string `json:"name"`
	Title             string `json:"title"`
	Email             string `json:"email"`
	Phone             string `json:"phone"`
	LinkedIn          string `json:"linkedin"`
	GitHub            string `json:"github"`
	LeetCode          string `json:"leetcode"`
	HackerRank        string `json:"hackerrank"`
	Summary           string `json:"summary"`
	ResumeURL         string `json:"resumeUrl"`
	ProfilePictureURL string `json:"profilePictureUrl"` // 空串或 data URI
}

// WorkExperience 工作经历，EndDate 为 "Present" 表示仍在职
type WorkExperience struct {
	Company          string   `json:"company"`
	JobTitle         string   `json:"jobTitle"`
	StartDate        string   `json:"startDate"`
	EndDate          string   `json:"endDate"`
	Responsibilities []string `json:"responsibilities"`
}

// Education 教育经历
type Education struct {
	Institution  string `json:"institution"`
	Degree       string `json:"degree"`
	FieldOfStudy string `json:"fieldOfStudy"`
	StartDate    string `json:"startDate"`
	EndDate      string `json:"endDate"`
	Description  string `json:"description"`
}

// Skill 技能，Level 取值 0..100
type Skill struct {
	Category string `json:"category"`
	Name     string `json:"name"`
	Level    int    `json:"level"`
}

// Project 项目
type Project struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Technologies []string `json:"technologies"`
	Link         string   `json:"link"`
	ImageURL     string   `json:"imageUrl"` // 空串或 data URI
}

// Achievement 成就
type Achievement struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Certification 证书，CredentialURL 在可编辑副本中永远是字符串
type Certification struct {
	Name                string `json:"name"`
	IssuingOrganization string `json:"issuingOrganization"`
	Date                string `json:"date"`
	CredentialURL       string `json:"credentialUrl"`
}

// SEO 页面元信息
type SEO struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// PortfolioRecord 一份完整的作品集数据
type PortfolioRecord struct {
	PersonalDetails PersonalDetails  `json:"personalDetails"`
	WorkExperience  []WorkExperience `json:"workExperience"`
	Education       []Education      `json:"education"`
	Skills          []Skill          `json:"skills"`
	Projects        []Project        `json:"projects"`
	Achievements    []Achievement    `json:"achievements"`
	Certifications  []Certification  `json:"certifications"`
	SEO             SEO              `json:"seo"`
}

// Normalize 补齐默认值：nil 列表置空、技能等级限制在合法区间内
func (r *PortfolioRecord) Normalize() {
	if r.WorkExperience == nil {
		r.WorkExperience = []WorkExperience{}
	}
	for i := range r.WorkExperience {
		if r.WorkExperience[i].Responsibilities == nil {
			r.WorkExperience[i].Responsibilities = []string{}
		}
	}
	if r.Education == nil {
		r.Education = []Education{}
	}
	if r.Skills == nil {
		r.Skills = []Skill{}
	}
	for i := range r.Skills {
		r.Skills[i].Level = ClampSkillLevel(r.Skills[i].Level)
	}
	if r.Projects == nil {
		r.Projects = []Project{}
	}
	for i := range r.Projects {
		if r.Projects[i].Technologies == nil {
			r.Projects[i].Technologies = []string{}
		}
	}
	if r.Achievements == nil {
		r.Achievements = []Achievement{}
	}
	if r.Certifications == nil {
		r.Certifications = []Certification{}
	}
}

// ClampSkillLevel 将技能等级限制在 [0,100]
func ClampSkillLevel(level int) int {
	if level < constants.MinSkillLevel {
		return constants.MinSkillLevel
	}
	if level > constants.MaxSkillLevel {
		return constants.MaxSkillLevel
	}
	return level
}

// Clone 深拷贝整个记录
func (r *PortfolioRecord) Clone() *PortfolioRecord {
	if r == nil {
		return nil
	}
	cp := *r
	for _, sec := range AllSections {
		cp.cloneSectionInPlace(sec)
	}
	return &cp
}

// CloneForSection 浅拷贝记录，仅深拷贝指定章节。
// 未被修改的章节与原记录共享底层数组，调用方只能修改指定章节。
func (r *PortfolioRecord) CloneForSection(sec Section) *PortfolioRecord {
	cp := *r
	cp.cloneSectionInPlace(sec)
	return &cp
}

func (r *PortfolioRecord) cloneSectionInPlace(sec Section) {
	switch sec {
	case SectionWorkExperience:
		r.WorkExperience = cloneSlice(r.WorkExperience)
		for i := range r.WorkExperience {
			r.WorkExperience[i].Responsibilities = cloneSlice(r.WorkExperience[i].Responsibilities)
		}
	case SectionEducation:
		r.Education = cloneSlice(r.Education)
	case SectionSkills:
		r.Skills = cloneSlice(r.Skills)
	case SectionProjects:
		r.Projects = cloneSlice(r.Projects)
		for i := range r.Projects {
			r.Projects[i].Technologies = cloneSlice(r.Projects[i].Technologies)
		}
	case SectionAchievements:
		r.Achievements = cloneSlice(r.Achievements)
	case SectionCertifications:
		r.Certifications = cloneSlice(r.Certifications)
	}
	// personalDetails 与 seo 是值类型，结构体拷贝即可
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}

// Validate 校验记录级不变量
func (r *PortfolioRecord) Validate() error {
	for i, s := range r.Skills {
		if s.Level < constants.MinSkillLevel || s.Level > constants.MaxSkillLevel {
			return NewValidationError(fmt.Sprintf("skills[%d].level", i),
				fmt.Sprintf("skill level must be between %d and %d", constants.MinSkillLevel, constants.MaxSkillLevel))
		}
	}
	if !isImageValue(r.PersonalDetails.ProfilePictureURL) {
		return NewValidationError("personalDetails.profilePictureUrl", "image must be empty or a data URI")
	}
	for i, p := range r.Projects {
		if !isImageValue(p.ImageURL) {
			return NewValidationError(fmt.Sprintf("projects[%d].imageUrl", i), "image must be empty or a data URI")
		}
	}
	return nil
}

func isImageValue(v string) bool {
	return v == "" || strings.HasPrefix(v, "data:")
}

// ContactMessage 访客留言，Date 为 ISO-8601 时间戳
type ContactMessage struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
	Date    string `json:"date"`
}
