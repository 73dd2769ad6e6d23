package sqlinline

// QInsertStyleBatch writes every row of one batch in a single statement so a
// batch is either fully visible or absent.
// Args: batch_id, catalogue, titles[], sources[] (JSON text), prompts[], created_at.
const QInsertStyleBatch = `--sql 9c41e7d2-5a3b-4f86-b0d4-2e7a6c18f5b9
insert into style_batches (batch_id, catalogue, position, title, source, prompt, created_at)
select
    $1::text,
    $2::text,
    t.position::int,
    t.title,
    t.source::jsonb,
    t.prompt,
    $6::timestamptz
from unnest($3::text[], $4::text[], $5::text[]) with ordinality as t(title, source, prompt, position);
`

// QSelectLatestStyleBatch returns the rows of the most recently created batch
// of a catalogue in their original order.
const QSelectLatestStyleBatch = `--sql 4e8b2d70-1c6f-4a9e-8b3d-7f05a2c9e611
with latest as (
    select batch_id
    from style_batches
    where catalogue = $1::text
    order by created_at desc, batch_id desc
    limit 1
)
select b.batch_id, b.title, b.source::text, b.prompt, b.created_at
from style_batches b
join latest l on l.batch_id = b.batch_id
order by b.position asc;
`
