package styles

import "stylegen/internal/domain"

// PresetSource tags editorial presets in listings.
const PresetSource = "preset"

var presets = []domain.Style{
	{
		Title:  "水彩插画",
		Prompt: "将画面转为柔和的水彩插画风格，纸张纹理清晰可见，颜色自然晕染，边缘留有水渍与飞白，整体明亮通透。",
	},
	{
		Title:  "吉卜力动画",
		Prompt: "以手绘日系动画电影的质感重绘画面，色彩温暖饱和，天空与云层层次丰富，线条干净，光线柔和带有怀旧氛围。",
	},
	{
		Title:  "像素艺术",
		Prompt: "将画面转换为 16 位像素艺术风格，使用有限调色板，保留清晰的像素边缘，背景简化为复古游戏场景。",
	},
	{
		Title:  "油画肖像",
		Prompt: "以古典油画肖像的方式重绘，厚涂笔触明显，明暗对比强烈，背景为深色调，人物面部光线如伦勃朗式布光。",
	},
	{
		Title:  "黏土定格",
		Prompt: "将场景重塑为黏土定格动画风格，表面带有手捏痕迹与细微指纹，材质哑光，景深浅，色彩活泼。",
	},
	{
		Title:  "赛璐璐漫画",
		Prompt: "改为日式赛璐璐上色漫画风格，使用平涂色块与硬边阴影，轮廓线粗细有变化，高光简洁。",
	},
}

// Defaults returns a copy of the editorial preset table.
func Defaults() []domain.Style {
	out := domain.CloneStyles(presets)
	for i := range out {
		out[i].Source = []string{PresetSource}
	}
	return out
}

// LookupDefault finds a preset by normalized title.
func LookupDefault(n Normalizer, title string) (domain.Style, bool) {
	key := n.Normalize(title)
	if key == "" {
		return domain.Style{}, false
	}
	for _, p := range presets {
		if n.Normalize(p.Title) == key {
			out := p.Clone()
			out.Source = []string{PresetSource}
			return out, true
		}
	}
	return domain.Style{}, false
}
