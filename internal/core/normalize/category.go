package normalize

import (
	"strings"

	"github.com/shawnsang/auto-openspg-schema/internal/core/model"
)

type categoryMapping struct {
	category string
	et       model.EntityType
}

// Categories the extraction prompt offers the model, in lookup order.
var categories = []categoryMapping{
	{"工程概念和术语", model.Concept},
	{"设备和组件", model.ArtificialObject},
	{"材料和物质", model.ArtificialObject},
	{"工艺和流程", model.Concept},
	{"标准和规范", model.Works},
	{"人员和组织", model.Organization},
	{"地理位置", model.GeographicLocation},
	{"时间和日期", model.Date},
	{"数值和参数", model.Concept},
	{"自然科学", model.NaturalScience},
	{"建筑", model.Building},
	{"药物", model.Medicine},
	{"作品", model.Works},
	{"事件", model.Event},
	{"人物", model.Person},
	{"运输", model.Transport},
	{"组织机构", model.Organization},
	{"人造物体", model.ArtificialObject},
	{"生物", model.Creature},
	{"关键词", model.Keyword},
	{"天文学", model.Astronomy},
	{"语义概念", model.SemanticConcept},
	{"概念", model.Concept},
	{"其他", model.Others},
}

// TypeForCategory maps a free-text category to an entity type: an exact
// category or type name first, then a substring match in either direction,
// and Others when nothing fits.
func TypeForCategory(category string) model.EntityType {
	c := strings.TrimSpace(category)
	if et, err := model.ParseEntityType(c); err == nil {
		return et
	}
	for _, m := range categories {
		if m.category == c {
			return m.et
		}
	}
	for _, m := range categories {
		if strings.Contains(c, m.category) || strings.Contains(m.category, c) {
			return m.et
		}
	}
	return model.Others
}

// Categories lists the category names in prompt order.
func Categories() []string {
	out := make([]string, len(categories))
	for i, m := range categories {
		out[i] = m.category
	}
	return out
}
