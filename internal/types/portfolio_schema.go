package types

// SchemaType 结构化输出字段类型
type SchemaType string

const (
	SchemaObject  SchemaType = "object"
	SchemaArray   SchemaType = "array"
	SchemaString  SchemaType = "string"
	SchemaInteger SchemaType = "integer"
)

// SchemaProperty 对象的一个属性，保持声明顺序
type SchemaProperty struct {
	Name string
	Node *SchemaNode
}

// SchemaNode 结构化输出的描述树。
// 同一棵树既渲染为 JSON Schema 用于校验，也可转换为各模型厂商的原生 schema
type SchemaNode struct {
	Type        SchemaType
	Description string
	Properties  []SchemaProperty
	Required    []string
	Items       *SchemaNode
}

func str(desc string) *SchemaNode {
	return &SchemaNode{Type: SchemaString, Description: desc}
}

func obj(required []string, props ...SchemaProperty) *SchemaNode {
	return &SchemaNode{Type: SchemaObject, Properties: props, Required: required}
}

func arr(items *SchemaNode, desc string) *SchemaNode {
	return &SchemaNode{Type: SchemaArray, Items: items, Description: desc}
}

func prop(name string, node *SchemaNode) SchemaProperty {
	return SchemaProperty{Name: name, Node: node}
}

// PortfolioSchema 生成接口要求模型返回的 JSON 结构
func PortfolioSchema() *SchemaNode {
	personal := obj([]string{"name", "title", "email", "summary"},
		prop("name", str("Full name.")),
		prop("title", str("Professional title, e.g., 'Senior Software Engineer'.")),
		prop("email", str("Email address.")),
		prop("phone", str("Phone number.")),
		prop("linkedin", str("Full LinkedIn profile URL.")),
		prop("github", str("Full GitHub profile URL.")),
		prop("leetcode", str("Full LeetCode profile URL. Omit if not found.")),
		prop("hackerrank", str("Full HackerRank profile URL. Omit if not found.")),
		prop("summary", str("A 3-4 sentence professional summary.")),
		prop("resumeUrl", str("A public URL to the resume file. Omit if not found.")),
		prop("profilePictureUrl", str("Leave this field empty.")),
	)

	work := obj([]string{"company", "jobTitle", "startDate", "endDate", "responsibilities"},
		prop("company", str("")),
		prop("jobTitle", str("")),
		prop("startDate", str("")),
		prop("endDate", str("Use 'Present' for the current role.")),
		prop("responsibilities", arr(str(""), "Achievement-oriented bullet points using strong action verbs.")),
	)

	education := obj([]string{"institution", "degree", "startDate", "endDate"},
		prop("institution", str("")),
		prop("degree", str("")),
		prop("fieldOfStudy", str("")),
		prop("startDate", str("")),
		prop("endDate", str("")),
		prop("description", str("")),
	)

	skill := obj([]string{"category", "name", "level"},
		prop("category", str("e.g., 'Programming Languages', 'Frameworks & Libraries'.")),
		prop("name", str("")),
		prop("level", &SchemaNode{Type: SchemaInteger, Description: "Proficiency level from 0 to 100, where 100 is expert."}),
	)

	project := obj([]string{"name", "description", "technologies"},
		prop("name", str("")),
		prop("description", str("")),
		prop("technologies", arr(str(""), "")),
		prop("link", str("")),
		prop("imageUrl", str("Leave this field empty.")),
	)

	achievement := obj([]string{"title", "description"},
		prop("title", str("")),
		prop("description", str("")),
	)

	certification := obj([]string{"name", "issuingOrganization", "date"},
		prop("name", str("")),
		prop("issuingOrganization", str("")),
		prop("date", str("")),
		prop("credentialUrl", str("")),
	)

	seo := obj([]string{"title", "description"},
		prop("title", str("SEO-friendly page title.")),
		prop("description", str("SEO meta description, around 155 characters.")),
	)

	return obj(
		[]string{"personalDetails", "workExperience", "education", "skills", "projects", "achievements", "certifications", "seo"},
		prop("personalDetails", personal),
		prop("workExperience", arr(work, "")),
		prop("education", arr(education, "")),
		prop("skills", arr(skill, "")),
		prop("projects", arr(project, "")),
		prop("achievements", arr(achievement, "")),
		prop("certifications", arr(certification, "")),
		prop("seo", seo),
	)
}

// ToJSONSchema 渲染为 draft-07 JSON Schema
func (n *SchemaNode) ToJSONSchema() map[string]any {
	doc := n.jsonSchema()
	doc["$schema"] = "http://json-schema.org/draft-07/schema#"
	return doc
}

func (n *SchemaNode) jsonSchema() map[string]any {
	out := map[string]any{"type": string(n.Type)}
	if n.Description != "" {
		out["description"] = n.Description
	}
	switch n.Type {
	case SchemaObject:
		props := make(map[string]any, len(n.Properties))
		for _, p := range n.Properties {
			props[p.Name] = p.Node.jsonSchema()
		}
		out["properties"] = props
		if len(n.Required) > 0 {
			required := make([]any, len(n.Required))
			for i, r := range n.Required {
				required[i] = r
			}
			out["required"] = required
		}
	case SchemaArray:
		if n.Items != nil {
			out["items"] = n.Items.jsonSchema()
		}
	}
	return out
}
