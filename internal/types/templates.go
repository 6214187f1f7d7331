package types

import "ai-portfolio-go/internal/constants"

// 以下构造函数返回"新增条目"时插入的默认模板

func NewWorkExperience() WorkExperience {
	return WorkExperience{
		EndDate:          constants.PresentSentinel,
		Responsibilities: []string{""},
	}
}

func NewEducation() Education {
	return Education{}
}

func NewSkill() Skill {
	return Skill{Level: constants.DefaultSkillLevel}
}

func NewProject() Project {
	return Project{Technologies: []string{""}}
}

func NewAchievement() Achievement {
	return Achievement{}
}

func NewCertification() Certification {
	return Certification{}
}

// NewEmptyPortfolio 返回一份所有列表为空的记录
func NewEmptyPortfolio() *PortfolioRecord {
	r := &PortfolioRecord{}
	r.Normalize()
	return r
}
