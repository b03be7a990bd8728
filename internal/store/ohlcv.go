package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"ubcc/internal/market"
	"ubcc/internal/timeframe"
)

// OHLCVStore 持久化单个 symbol+timeframe 的 K 线序列。
// timestamp（UTC 毫秒）为主键，表内逻辑上按时间升序。
// 单进程单会话使用，不提供跨进程协调。
type OHLCVStore struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// FilePath 返回 (symbol, timeframe) 对应的数据库文件路径。
func FilePath(dir, symbol string, tf timeframe.Timeframe) string {
	name := fmt.Sprintf("%s_%s.db", strings.ToUpper(strings.TrimSpace(symbol)), tf)
	return filepath.Join(dir, name)
}

// Open 打开（必要时创建）数据库文件并建表。每次会话启动调用都是安全的。
func Open(path string) (*OHLCVStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("store path 不能为空")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("创建数据目录失败: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	s := &OHLCVStore{db: db, path: path}
	if err := s.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *OHLCVStore) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS ohlcv (
            timestamp INTEGER PRIMARY KEY,
            open      REAL,
            high      REAL,
            low       REAL,
            close     REAL,
            volume    REAL
        ) WITHOUT ROWID`)
	if err != nil {
		return fmt.Errorf("初始化 ohlcv 表失败: %w", err)
	}
	return nil
}

// Path 返回底层数据库文件路径。
func (s *OHLCVStore) Path() string { return s.path }

// Close 关闭底层连接。
func (s *OHLCVStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *OHLCVStore) handle() (*sql.DB, error) {
	s.mu.Lock()
	db := s.db
	s.mu.Unlock()
	if db == nil {
		return nil, fmt.Errorf("ohlcv store 未初始化")
	}
	return db, nil
}

// UpsertBatch 在单个事务内按 timestamp 主键插入或覆盖整批 K 线；
// 任一行失败则整批回滚。返回写入行数（等于 len(candles)）。
func (s *OHLCVStore) UpsertBatch(ctx context.Context, candles []market.Candle) (int, error) {
	if len(candles) == 0 {
		return 0, nil
	}
	db, err := s.handle()
	if err != nil {
		return 0, err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("开启事务失败: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO ohlcv (timestamp, open, high, low, close, volume)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(timestamp) DO UPDATE SET
            open=excluded.open, high=excluded.high, low=excluded.low,
            close=excluded.close, volume=excluded.volume`)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("准备 upsert 语句失败: %w", err)
	}
	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx, c.Timestamp, c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			stmt.Close()
			tx.Rollback()
			return 0, fmt.Errorf("写入 K 线 (ts=%d) 失败: %w", c.Timestamp, err)
		}
	}
	stmt.Close()
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("提交事务失败: %w", err)
	}
	return len(candles), nil
}

// Extremes 返回已存数据的最早/最晚时间戳；空表时 ok=false。
func (s *OHLCVStore) Extremes(ctx context.Context) (min, max int64, ok bool, err error) {
	db, err := s.handle()
	if err != nil {
		return 0, 0, false, err
	}
	var lo, hi sql.NullInt64
	row := db.QueryRowContext(ctx, `SELECT MIN(timestamp), MAX(timestamp) FROM ohlcv`)
	if err := row.Scan(&lo, &hi); err != nil {
		return 0, 0, false, fmt.Errorf("查询时间范围失败: %w", err)
	}
	if !lo.Valid || !hi.Valid {
		return 0, 0, false, nil
	}
	return lo.Int64, hi.Int64, true, nil
}

// rangeWhere 构造可选边界条件；0 表示该侧不限。
func rangeWhere(start, end int64) (string, []any) {
	var conds []string
	var args []any
	if start != 0 {
		conds = append(conds, "timestamp >= ?")
		args = append(args, start)
	}
	if end != 0 {
		conds = append(conds, "timestamp <= ?")
		args = append(args, end)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// CountInRange 统计区间内的行数；start/end 为 0 表示不限。
func (s *OHLCVStore) CountInRange(ctx context.Context, start, end int64) (int64, error) {
	db, err := s.handle()
	if err != nil {
		return 0, err
	}
	where, args := rangeWhere(start, end)
	var count int64
	row := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ohlcv`+where, args...)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("统计行数失败: %w", err)
	}
	return count, nil
}

// OrderingViolations 统计相邻两行中后者时间戳不严格递增的对数。
// 主键约束下理应恒为 0，用于发现存储损坏。
func (s *OHLCVStore) OrderingViolations(ctx context.Context, start, end int64) (int64, error) {
	db, err := s.handle()
	if err != nil {
		return 0, err
	}
	where, args := rangeWhere(start, end)
	query := fmt.Sprintf(`
        WITH ordered AS (
            SELECT timestamp,
                   LAG(timestamp) OVER (ORDER BY timestamp) AS prev_timestamp
            FROM ohlcv%s
        )
        SELECT COUNT(*) FROM ordered WHERE prev_timestamp >= timestamp`, where)
	var count int64
	row := db.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("校验时间顺序失败: %w", err)
	}
	return count, nil
}

// ReadRange 按时间升序返回区间内的全部 K 线。
func (s *OHLCVStore) ReadRange(ctx context.Context, start, end int64) ([]market.Candle, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	where, args := rangeWhere(start, end)
	rows, err := db.QueryContext(ctx, `
        SELECT timestamp, open, high, low, close, volume
        FROM ohlcv`+where+` ORDER BY timestamp`, args...)
	if err != nil {
		return nil, fmt.Errorf("读取 K 线失败: %w", err)
	}
	defer rows.Close()
	var out []market.Candle
	for rows.Next() {
		var c market.Candle
		if err := rows.Scan(&c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ReadTimestamps 按时间升序返回区间内的时间戳序列，供 gap 扫描使用。
func (s *OHLCVStore) ReadTimestamps(ctx context.Context, start, end int64) ([]int64, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	where, args := rangeWhere(start, end)
	rows, err := db.QueryContext(ctx, `SELECT timestamp FROM ohlcv`+where+` ORDER BY timestamp`, args...)
	if err != nil {
		return nil, fmt.Errorf("读取时间戳失败: %w", err)
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var ts int64
		if err := rows.Scan(&ts); err != nil {
			return nil, err
		}
		out = append(out, ts)
	}
	return out, rows.Err()
}
