package router

import (
	"fmt"
	"html/template"
	"path/filepath"
	"time"

	"agora/internal/models"
	"agora/internal/utils"

	"github.com/gin-contrib/multitemplate"
)

// views 渲染时使用的模板名，对应 views/ 下的文件
var views = []string{
	"auth/login.html",
	"auth/register.html",
	"community/list.html",
	"community/detail.html",
	"community/form.html",
	"user/profile.html",
	"error.html",
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"dict": func(values ...any) (map[string]any, error) {
			if len(values)%2 != 0 {
				return nil, fmt.Errorf("invalid dict call")
			}
			dict := make(map[string]any, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict keys must be strings")
				}
				dict[key] = values[i+1]
			}
			return dict, nil
		},
		"add": func(a, b int) int {
			return a + b
		},
		"sub": func(a, b int) int {
			return a - b
		},
		"timeAgo": func(t time.Time) string {
			return utils.TimeAgo(t)
		},
		"truncate":  utils.Truncate,
		"markdown":  utils.RenderMarkdown,
		"plainText": utils.PlainText,
		"initials":  utils.Initials,
		"categoryLabel": func(c models.Category) string {
			return c.Label()
		},
		// field 取表单字段的校验提示，fields 可以为 nil
		"field": func(fields map[string]string, name string) string {
			return fields[name]
		},
	}
}

// loadTemplates 每个页面由布局、组件和对应视图组合而成
func loadTemplates(templatesDir string) multitemplate.Renderer {
	r := multitemplate.NewRenderer()

	layouts, err := filepath.Glob(templatesDir + "/layouts/*.html")
	if err != nil {
		panic(err)
	}
	components, err := filepath.Glob(templatesDir + "/components/*.html")
	if err != nil {
		panic(err)
	}

	assemble := func(view string) []string {
		files := make([]string, 0, len(layouts)+len(components)+1)
		files = append(files, layouts...)
		files = append(files, components...)
		files = append(files, view)
		return files
	}

	funcMap := templateFuncs()
	for _, name := range views {
		r.AddFromFilesFuncs(name, funcMap, assemble(filepath.Join(templatesDir, "views", name))...)
	}
	return r
}
