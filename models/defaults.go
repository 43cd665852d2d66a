package models

import (
	"net/http"

	"github.com/golang/glog"

	h "github.com/lumenblog/lumen/helpers"
)

// DefaultCategories are created by InitDefaultCategories
var DefaultCategories = []CategoryType{
	{Name: "嵌入式", Slug: "embedded", Description: "嵌入式系统开发相关", Icon: "Cpu", SortOrder: 1},
	{Name: "ROS", Slug: "ros", Description: "机器人操作系统相关", Icon: "Bot", SortOrder: 2},
	{Name: "深度学习", Slug: "deep-learning", Description: "深度学习与人工智能", Icon: "Brain", SortOrder: 3},
	{Name: "DIY", Slug: "diy", Description: "DIY项目与创客", Icon: "Wrench", SortOrder: 4},
	{Name: "编程语言", Slug: "programming", Description: "编程语言学习笔记", Icon: "Code", SortOrder: 5},
	{Name: "工具与环境", Slug: "tools", Description: "开发工具与环境配置", Icon: "Settings", SortOrder: 6},
	{Name: "其他", Slug: "other", Description: "其他技术文章", Icon: "FileText", SortOrder: 99},
}

// InitDefaultCategoriesReport says what InitDefaultCategories did
type InitDefaultCategoriesReport struct {
	Created []string `json:"created"`
	Skipped []string `json:"skipped"`
	Failed  []string `json:"failed"`
}

// InitDefaultCategories creates each default category whose slug is not
// already taken. A category that cannot be created is logged and skipped.
func InitDefaultCategories(env *Env) (InitDefaultCategoriesReport, int, error) {
	report := InitDefaultCategoriesReport{
		Created: []string{},
		Skipped: []string{},
		Failed:  []string{},
	}

	for _, cat := range DefaultCategories {
		_, status, err := GetCategoryBySlug(env, cat.Slug)
		if err == nil {
			report.Skipped = append(report.Skipped, cat.Slug)
			continue
		}
		if status != http.StatusNotFound {
			glog.Errorf("InitDefaultCategories lookup %s: %+v", cat.Slug, err)
			report.Failed = append(report.Failed, cat.Slug)
			continue
		}

		cat.Type = h.ContentTypeBlog
		_, _, err = CreateCategory(env, cat)
		if err != nil {
			glog.Errorf("InitDefaultCategories create %s: %+v", cat.Slug, err)
			report.Failed = append(report.Failed, cat.Slug)
			continue
		}

		if glog.V(2) {
			glog.Infof("Created default category %s", cat.Slug)
		}
		report.Created = append(report.Created, cat.Slug)
	}

	return report, http.StatusOK, nil
}
