package generator

// PriceRange bounds a secondary category's list price, in cents.
type PriceRange struct {
	Min int64
	Max int64
}

// Category is the fixed product taxonomy for one main category.
type Category struct {
	Name        string
	Subcats     map[string][]string
	PriceRanges map[string]PriceRange
}

// Categories holds the supported main-category taxonomies.
var Categories = map[string]Category{
	"bicycle": {
		Name: "自行车",
		Subcats: map[string][]string{
			"整车-品牌": {"品牌公路车", "品牌山地车", "品牌折叠车"},
			"整车-白牌": {"白牌公路车", "白牌山地车", "白牌折叠车", "白牌通勤车", "白牌儿童车"},
			"骑行装备":  {"头盔", "手套", "骑行服", "骑行裤", "骑行鞋", "眼镜", "水壶", "车灯", "车锁", "码表"},
		},
		PriceRanges: map[string]PriceRange{
			"整车-品牌": {80000, 300000},
			"整车-白牌": {20000, 80000},
			"骑行装备":  {3000, 30000},
		},
	},
	"clothing": {
		Name: "服装",
		Subcats: map[string][]string{
			"男装": {"T恤", "衬衫", "裤子", "外套", "卫衣", "牛仔裤"},
			"女装": {"连衣裙", "半身裙", "上衣", "裤子", "外套", "毛衣"},
			"童装": {"T恤", "裤子", "外套", "连衣裙", "套装"},
		},
		PriceRanges: map[string]PriceRange{
			"男装": {5000, 80000},
			"女装": {8000, 120000},
			"童装": {4000, 50000},
		},
	},
	"electronics": {
		Name: "数码",
		Subcats: map[string][]string{
			"手机": {"智能手机", "老人机", "游戏手机", "拍照手机"},
			"电脑": {"笔记本", "台式机", "平板电脑", "一体机"},
			"配件": {"耳机", "充电器", "数据线", "保护壳", "移动电源", "键盘", "鼠标"},
		},
		PriceRanges: map[string]PriceRange{
			"手机": {100000, 800000},
			"电脑": {300000, 1500000},
			"配件": {2000, 50000},
		},
	},
	"food": {
		Name: "食品",
		Subcats: map[string][]string{
			"零食": {"薯片", "饼干", "糖果", "巧克力", "坚果", "果干"},
			"生鲜": {"水果", "蔬菜", "肉类", "海鲜", "蛋类"},
			"饮料": {"茶饮", "咖啡", "果汁", "碳酸饮料", "矿泉水"},
		},
		PriceRanges: map[string]PriceRange{
			"零食": {1000, 10000},
			"生鲜": {1500, 20000},
			"饮料": {500, 8000},
		},
	},
	"beauty": {
		Name: "美妆",
		Subcats: map[string][]string{
			"护肤": {"洁面", "水乳", "精华", "面膜", "防晒", "眼霜"},
			"彩妆": {"口红", "粉底", "眼影", "睫毛膏", "腮红", "眉笔"},
			"个护": {"洗发水", "沐浴露", "牙膏", "香水", "身体乳"},
		},
		PriceRanges: map[string]PriceRange{
			"护肤": {5000, 80000},
			"彩妆": {3000, 50000},
			"个护": {2000, 30000},
		},
	},
	"home": {
		Name: "家居",
		Subcats: map[string][]string{
			"家具": {"沙发", "床", "桌子", "椅子", "柜子", "书架"},
			"家纺": {"床单", "被套", "枕头", "毛巾", "窗帘", "地毯"},
			"装饰": {"挂画", "摆件", "花瓶", "相框", "灯具", "钟表"},
		},
		PriceRanges: map[string]PriceRange{
			"家具": {50000, 500000},
			"家纺": {5000, 80000},
			"装饰": {3000, 50000},
		},
	},
}

// Promotion channels per platform.
var platformChannels = map[string][]string{
	"京东":  {"京东快车", "京东展位", "京准通", "品牌特秀"},
	"天猫":  {"直通车", "钻展", "超级推荐", "品牌特秀"},
	"抖音":  {"巨量千川", "抖音小店随心推", "DOU+", "品牌广告"},
	"快手":  {"磁力金牛", "快手粉条", "快手小店推广", "品牌广告"},
	"微信":  {"朋友圈广告", "公众号广告", "小程序广告", "视频号推广"},
	"小红书": {"信息流广告", "搜索广告", "薯条", "品牌合作"},
	"拼多多": {"多多搜索", "多多场景", "多多进宝", "品牌推广"},
}

var defaultChannels = []string{"通用推广"}

var cities = []string{
	"北京", "上海", "广州", "深圳", "杭州", "成都", "武汉", "南京", "重庆", "西安",
	"苏州", "天津", "长沙", "郑州", "青岛", "沈阳", "宁波", "东莞", "无锡", "昆明",
}

var genders = []string{"男", "女", "其他"}
