package fixture

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"DailyPick/internal/model"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var embedded embed.FS

// leagueFile 单个联赛的冻结快照文件
type leagueFile struct {
	League model.League   `yaml:"league"`
	Teams  []teamFixture  `yaml:"teams"`
	Games  []gameTemplate `yaml:"games"`
}

type teamFixture struct {
	Stats       model.TeamStats    `yaml:"stats"`
	Injuries    []model.Injury     `yaml:"injuries"`
	RecentGames []model.GameResult `yaml:"recent_games"`
}

// gameTemplate 与日期无关的比赛模板，请求某日时按 kickoff 展开
type gameTemplate struct {
	HomeTeam string         `yaml:"home_team"`
	AwayTeam string         `yaml:"away_team"`
	Kickoff  string         `yaml:"kickoff"` // HH:MM，规范时区
	Odds     model.GameOdds `yaml:"odds"`
}

// Snapshot 冻结快照（只读），所有返回值 Degraded=true
type Snapshot struct {
	teams map[model.League]map[string]*teamFixture
	games map[model.League][]gameTemplate
}

// Load dir 为空时使用内置快照，否则读取 dir 下的 *.yaml
func Load(dir string) (*Snapshot, error) {
	var fsys fs.FS = embedded
	pattern := "data/*.yaml"
	if dir != "" {
		fsys = os.DirFS(dir)
		pattern = "*.yaml"
	}
	files, err := fs.Glob(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("查找快照文件失败: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: 快照目录%q下无yaml文件", model.ErrGatewayUnavailable, dir)
	}

	s := &Snapshot{
		teams: make(map[model.League]map[string]*teamFixture),
		games: make(map[model.League][]gameTemplate),
	}
	for _, name := range files {
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("读取快照%s失败: %w", name, err)
		}
		var lf leagueFile
		if err := yaml.Unmarshal(raw, &lf); err != nil {
			return nil, fmt.Errorf("解析快照%s失败: %w", name, err)
		}
		league, err := model.ParseLeague(string(lf.League))
		if err != nil {
			return nil, fmt.Errorf("快照%s: %w", name, err)
		}
		if s.teams[league] == nil {
			s.teams[league] = make(map[string]*teamFixture)
		}
		for i := range lf.Teams {
			t := lf.Teams[i]
			s.teams[league][strings.ToUpper(t.Stats.Team)] = &t
		}
		for _, g := range lf.Games {
			if _, _, err := parseKickoff(g.Kickoff); err != nil {
				return nil, fmt.Errorf("快照%s %s@%s: %w", name, g.AwayTeam, g.HomeTeam, err)
			}
			s.games[league] = append(s.games[league], g)
		}
	}
	return s, nil
}

var errTeamNotInSnapshot = errors.New("team not in snapshot")

func (s *Snapshot) team(league model.League, team string) (*teamFixture, error) {
	t, ok := s.teams[league][strings.ToUpper(team)]
	if !ok {
		return nil, fmt.Errorf("%w: %w: %s/%s", model.ErrGatewayUnavailable, errTeamNotInSnapshot, league, team)
	}
	return t, nil
}

// TeamStats 快照中的赛季数据
func (s *Snapshot) TeamStats(league model.League, team string) (*model.TeamStats, error) {
	t, err := s.team(league, team)
	if err != nil {
		return nil, err
	}
	stats := t.Stats
	stats.RecentForm = append([]string(nil), t.Stats.RecentForm...)
	stats.Degraded = true
	return &stats, nil
}

// InjuryReport 快照中的伤病报告
func (s *Snapshot) InjuryReport(league model.League, team string) (*model.InjuryReport, error) {
	t, err := s.team(league, team)
	if err != nil {
		return nil, err
	}
	return &model.InjuryReport{
		Team:     t.Stats.Team,
		Injuries: append([]model.Injury(nil), t.Injuries...),
		Degraded: true,
	}, nil
}

// RecentGames 快照中最近 n 场
func (s *Snapshot) RecentGames(league model.League, team string, n int) (*model.RecentGames, error) {
	t, err := s.team(league, team)
	if err != nil {
		return nil, err
	}
	games := t.RecentGames
	if n >= 0 && n < len(games) {
		games = games[:n]
	}
	return &model.RecentGames{
		Team:     t.Stats.Team,
		Games:    append([]model.GameResult(nil), games...),
		Degraded: true,
	}, nil
}

// GamesForDate 把比赛模板展开到指定日期，game_id 按日期稳定
func (s *Snapshot) GamesForDate(day model.Day, league model.League) (*model.GameSlate, error) {
	start := day.Start()
	if start.IsZero() {
		return nil, fmt.Errorf("非法日期: %q", day)
	}
	if _, ok := s.teams[league]; !ok {
		return nil, fmt.Errorf("%w: 快照中没有联赛%s", model.ErrGatewayUnavailable, league)
	}
	slate := &model.GameSlate{League: league, Day: day, Degraded: true}
	compact := strings.ReplaceAll(string(day), "-", "")
	for _, g := range s.games[league] {
		h, m, _ := parseKickoff(g.Kickoff)
		kickoff := time.Date(start.Year(), start.Month(), start.Day(), h, m, 0, 0, start.Location())
		slate.Games = append(slate.Games, model.Game{
			League:    league,
			GameID:    fmt.Sprintf("fx-%s-%s-%s-%s", league, g.HomeTeam, g.AwayTeam, compact),
			HomeTeam:  g.HomeTeam,
			AwayTeam:  g.AwayTeam,
			StartTime: kickoff.UTC(),
			Status:    model.GameScheduled,
			Odds:      g.Odds,
			Degraded:  true,
		})
	}
	return slate, nil
}

func parseKickoff(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("kickoff格式错误(应为HH:MM): %q", s)
	}
	return t.Hour(), t.Minute(), nil
}
